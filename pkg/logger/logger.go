// pkg/logger/logger.go
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Sugared = *zap.SugaredLogger

// Field keys shared by the gateway and the bootstrap tool.
const (
	KeyRequestID = "request_id"
	KeyOperation = "operation"
	KeyCode      = "code"
	KeyCategory  = "category"
	KeyFault     = "fault"
	KeyCommand   = "command"
	KeyErr       = "err"
)

// New builds a sugared logger: JSON production encoding for "prod", console
// development encoding otherwise. LOG_LEVEL overrides the default level.
func New(env string) Sugared {
	var zc zap.Config
	if env == "prod" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, ok := levelFromEnv(); ok {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	z, err := zc.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return z.Sugar()
}

func levelFromEnv() (zapcore.Level, bool) {
	v := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if v == "" {
		return zapcore.InfoLevel, false
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(v))); err != nil {
		return zapcore.InfoLevel, false
	}
	return lvl, true
}
