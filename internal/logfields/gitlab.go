package logfields

import "go.uber.org/zap"

func Project(val string) zap.Field {
	return zap.String("gitlab.project", val)
}

func MergeRequest(iid int) zap.Field {
	return zap.Int("gitlab.merge_request", iid)
}

func Issue(iid int) zap.Field {
	return zap.Int("gitlab.issue", iid)
}

func MergeStatus(val string) zap.Field {
	return zap.String("gitlab.merge_status", val)
}
