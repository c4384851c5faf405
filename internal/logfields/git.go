package logfields

import "go.uber.org/zap"

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func BaseBranch(val string) zap.Field {
	return zap.String("git.base_branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func Directory(val string) zap.Field {
	return zap.String("git.directory", val)
}
