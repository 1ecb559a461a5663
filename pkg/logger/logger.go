package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	base *zap.Logger
	log  *zap.SugaredLogger
)

// Config 로거 설정
type Config struct {
	Level       string
	Environment string // "development" | "production"
	ServiceName string
}

// Init 로거 초기화
func Init(cfg Config) {
	logger, err := New(cfg)
	if err != nil {
		panic(err)
	}
	base = logger
	log = logger.Sugar()
}

// New 설정에 맞는 zap 로거 생성
func New(cfg Config) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	zapConfig.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	if cfg.ServiceName != "" {
		logger = logger.With(zap.String("service", cfg.ServiceName))
	}
	return logger, nil
}

// ParseLevel 로그 레벨 문자열 파싱 (알 수 없는 값은 info)
func ParseLevel(level string) zapcore.Level {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return l
}

// L 서비스에 주입할 *zap.Logger 반환 (초기화 전에는 no-op)
func L() *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base
}

// Sync 로거 플러시
func Sync() {
	if base != nil {
		_ = base.Sync()
	}
}

func sugar() *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}

// Debug 디버그 로그
func Debug(msg string, keysAndValues ...interface{}) {
	sugar().Debugw(msg, keysAndValues...)
}

// Info 정보 로그
func Info(msg string, keysAndValues ...interface{}) {
	sugar().Infow(msg, keysAndValues...)
}

// Warn 경고 로그
func Warn(msg string, keysAndValues ...interface{}) {
	sugar().Warnw(msg, keysAndValues...)
}

// Error 에러 로그
func Error(msg string, keysAndValues ...interface{}) {
	sugar().Errorw(msg, keysAndValues...)
}

// Fatal 치명적 에러 로그 (프로그램 종료)
func Fatal(msg string, keysAndValues ...interface{}) {
	sugar().Fatalw(msg, keysAndValues...)
}
