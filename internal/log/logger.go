package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global atomic.Pointer[zap.Logger]

// Init builds the process logger: JSON in production, console otherwise.
func Init(production bool) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	Set(l)
	return l, nil
}

func Set(l *zap.Logger) {
	global.Store(l)
	zap.ReplaceGlobals(l)
}

// L returns the process logger, a no-op one before Init.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}

func Infof(format string, args ...any)  { L().Sugar().Infof(format, args...) }
func Errorf(format string, args ...any) { L().Sugar().Errorf(format, args...) }
