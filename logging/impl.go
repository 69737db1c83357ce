package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type impl struct {
	name  string
	level zap.AtomicLevel
	core  zapcore.Core
	sugar *zap.SugaredLogger
}

func (imp *impl) SetLevel(level Level) {
	imp.level.SetLevel(level.AsZap())
}

func (imp *impl) GetLevel() Level {
	switch imp.level.Level() {
	case zapcore.DebugLevel:
		return DEBUG
	case zapcore.WarnLevel:
		return WARN
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ERROR
	case zapcore.InfoLevel, zapcore.InvalidLevel:
	}
	return INFO
}

// newImpl returns a logger whose fields are fixed at construction, so it is safe to share
// across goroutines.
func newImpl(name string, level zap.AtomicLevel, core zapcore.Core) *impl {
	leveled, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		// The core is more restrictive than our level; use it as-is.
		leveled = core
	}
	return &impl{
		name:  name,
		level: level,
		core:  core,
		sugar: zap.New(leveled, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar().Named(name),
	}
}

func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return newImpl(newName, zap.NewAtomicLevelAt(imp.level.Level()), imp.core)
}

func (imp *impl) Sync() error {
	return imp.core.Sync()
}

// AsZap returns a sugared logger whose level tracks this logger's level.
func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.sugar
}

func (imp *impl) Debug(args ...interface{}) {
	imp.AsZap().Debug(args...)
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	imp.AsZap().Debugf(template, args...)
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.AsZap().Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) {
	imp.AsZap().Info(args...)
}

func (imp *impl) Infof(template string, args ...interface{}) {
	imp.AsZap().Infof(template, args...)
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.AsZap().Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) {
	imp.AsZap().Warn(args...)
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	imp.AsZap().Warnf(template, args...)
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.AsZap().Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) {
	imp.AsZap().Error(args...)
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	imp.AsZap().Errorf(template, args...)
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.AsZap().Errorw(msg, keysAndValues...)
}
