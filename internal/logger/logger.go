package logger

import (
	"context"
	"github.com/maxaizer/seek-applier/internal/config"
	"github.com/maxaizer/seek-applier/pkg/loki"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeSeekAuth   = "seek_auth"
	ErrorTypeSeekUpload = "seek_upload"
	ErrorTypeSeekSubmit = "seek_submit"
	ErrorTypeTransport  = "transport"
	ErrorTypeMail       = "mail"
	ErrorTypeAiApi      = "ai_api"
	ErrorTypeLedger     = "ledger"
	ErrorTypeTgApi      = "tg_api"
	ErrorTypeDb         = "db"
)

// New builds the process logger. The returned cleanup flushes remote hooks and closes the log file.
func New(ctx context.Context, cfg config.LoggerConfig) (*log.Logger, func(), error) {

	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		return nil, nil, err
	}

	logFile, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, err
	}

	logger := log.New()
	logger.SetOutput(io.MultiWriter(os.Stdout, logFile))
	logger.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	})
	logger.SetLevel(levelOf(cfg.LogLevel))
	addPrometheusHook(logger)

	var pusher *loki.Pusher
	if cfg.LokiURL != "" {
		pusher, err = addLokiHook(ctx, logger, loki.Config{
			Url:      cfg.LokiURL,
			Username: cfg.LokiUser,
			Password: cfg.LokiPassword,
			Labels:   map[string]string{"app": cfg.AppName},
		})
		if err != nil {
			_ = logFile.Close()
			return nil, nil, err
		}
	}

	cleanup := func() {
		if pusher != nil {
			pusher.Stop()
		}
		_ = logFile.Close()
	}
	return logger, cleanup, nil
}

// Discard is a logger for tests and for collaborators created without one.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func levelOf(level config.LogLevel) log.Level {
	switch level {
	case config.LevelDebug:
		return log.DebugLevel
	case config.LevelWarning:
		return log.WarnLevel
	case config.LevelError:
		return log.ErrorLevel
	case config.LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
