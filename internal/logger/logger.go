package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultService = "trendsignal"

type Config struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
	Sampling    bool   `mapstructure:"sampling"`
	// Service 写入每条日志的 service 字段
	Service     string   `mapstructure:"service"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// New 根据配置构建 zap logger，非法的日志级别回退为 info
func New(cfg Config) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeDuration = zapcore.StringDurationEncoder

	encoding := strings.ToLower(cfg.Encoding)
	switch encoding {
	case "":
		encoding = "json"
	case "console":
		encoder = zap.NewDevelopmentEncoderConfig()
		encoder.EncodeDuration = zapcore.StringDurationEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	service := cfg.Service
	if service == "" {
		service = defaultService
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          encoding,
		DisableStacktrace: !cfg.Development,
		EncoderConfig:     encoder,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		InitialFields:     map[string]interface{}{"service": service},
	}

	// 每轮扫描会对每个池子打日志，采样避免刷屏
	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	return zc.Build()
}
