package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Service is attached to every entry as the "service" field.
const Service = "lightblue"

// New builds a JSON logger writing to the given sinks at logLevel.
func New(logLevel string, outputStdout []string, outputStderr []string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	return build(logLevel, "json", encoderCfg, outputStdout, outputStderr)
}

// NewConsole builds a human-readable logger for interactive runs, with
// colored levels and short timestamps.
func NewConsole(logLevel string, outputStdout []string, outputStderr []string) (*zap.Logger, error) {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	return build(logLevel, "console", encoderCfg, outputStdout, outputStderr)
}

func build(logLevel, encoding string, encoderCfg zapcore.EncoderConfig, outputStdout, outputStderr []string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, err
	}

	config := zap.Config{
		Level:             atomicLevel,
		Development:       encoding == "console",
		DisableCaller:     false,
		DisableStacktrace: encoding == "console",
		Sampling:          nil,
		Encoding:          encoding,
		EncoderConfig:     encoderCfg,
		OutputPaths:       outputStdout,
		ErrorOutputPaths:  outputStderr,
		InitialFields:     map[string]interface{}{"service": Service},
	}

	return config.Build()
}
