package logging

import (
	"context"
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type ctxKey int

const requestIDKey ctxKey = 0

var (
	_logger           = NewTmpLogger()
	_xRequestIDHeader = "x_request_id"
)

// Config controls logger construction; read from viper under "log.*".
type Config struct {
	Level  string
	Pretty bool
}

func ReadConfig() *Config {
	viper.BindEnv("log.level", "LOG_LEVEL")
	viper.BindEnv("log.pretty", "LOG_PRETTY")

	return &Config{
		Level:  viper.GetString("log.level"),
		Pretty: viper.GetBool("log.pretty"),
	}
}

func NewLogger(cfg *Config) (*zap.Logger, error) {
	var c zap.Config
	var opts []zap.Option
	if cfg.Pretty {
		c = zap.NewDevelopmentConfig()
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	} else {
		c = zap.NewProductionConfig()
	}

	level := zap.NewAtomicLevel()

	levelName := "INFO"
	if cfg.Level != "" {
		levelName = cfg.Level
	}

	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level %s", cfg.Level)
	}
	c.Level = level

	return c.Build(opts...)
}

func InitLogger(cfg *Config) (err error) {
	_logger, err = NewLogger(cfg)
	return err
}

func NewTmpLogger() *zap.Logger {
	c := zap.NewProductionConfig()
	c.DisableStacktrace = true
	l, err := c.Build()
	if err != nil {
		panic(err)
	}
	return l
}

// WithRequestID stores the inbound request id so Logger can annotate entries.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Logger Return new logger with context value
// ctx:  nillable
func Logger(ctx context.Context) *zap.Logger {
	if ctx == context.TODO() {
		return _logger
	}
	return injectXRequestID(_logger, ctx)
}

func SetXRequestIDHeader(headerName string) {
	_xRequestIDHeader = headerName
}

func injectXRequestID(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if ctx == nil {
		return logger
	}
	requestID := getRequestID(ctx)
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String(_xRequestIDHeader, requestID))
}

func getRequestID(ctx context.Context) string {
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok {
		return ""
	}
	return requestID
}
