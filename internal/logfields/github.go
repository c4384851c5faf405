package logfields

import "go.uber.org/zap"

func Repository(owner, repo string) zap.Field {
	return zap.String("github.repository", owner+"/"+repo)
}
