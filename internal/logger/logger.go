package logger

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006/01/02 15:04:05"

// до Init пишем в никуда, чтобы тесты пакетов не падали без инициализации
var Logger = zap.NewNop()

// Init: development - цветной консольный вывод с уровнем Debug, иначе JSON с уровнем Info
func Init(development bool) error {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeLayout)

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	Logger = l
	return nil
}

func Sync() {
	_ = Logger.Sync()
}

func Debug(msg string, fields ...zap.Field) { Logger.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { Logger.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { Logger.Warn(msg, fields...) }

func Log(lvl zapcore.Level, msg string, fields ...zap.Field) { Logger.Log(lvl, msg, fields...) }

// Error добавляет err полем "error"; nil пропускается
func Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	Logger.Error(msg, fields...)
}

func HttpRequestInfo(r *http.Request, msg string, fields ...zap.Field) {
	Logger.Info(msg, append([]zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("query", r.URL.RawQuery),
		zap.String("client_ip", r.RemoteAddr),
	}, fields...)...)
}

func TaskID(id uuid.UUID) zap.Field { return zap.Stringer("task_id", id) }

func OwnerID(id uuid.UUID) zap.Field { return zap.Stringer("owner_id", id) }

func SubscriptionID(id uuid.UUID) zap.Field { return zap.Stringer("subscription_id", id) }

// PushHost пишет только хост push-сервиса: путь endpoint - секрет подписки
func PushHost(endpoint string) zap.Field {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return zap.String("push_host", "unknown")
	}
	return zap.String("push_host", u.Host)
}
