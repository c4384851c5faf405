package logfields

import "go.uber.org/zap"

func PackageManager(val string) zap.Field {
	return zap.String("package_manager", val)
}

func Dependency(name string) zap.Field {
	return zap.String("dependency", name)
}

func DependencyVersion(val string) zap.Field {
	return zap.String("dependency.version", val)
}

func DependencyTargetVersion(val string) zap.Field {
	return zap.String("dependency.target_version", val)
}

func UnlockStrategy(val string) zap.Field {
	return zap.String("dependency.unlock_strategy", val)
}

func URL(val string) zap.Field {
	return zap.String("url", val)
}
