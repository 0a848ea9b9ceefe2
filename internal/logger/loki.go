package logger

import (
	"context"
	"github.com/maxaizer/seek-applier/pkg/loki"
	log "github.com/sirupsen/logrus"
	"path/filepath"
	"strconv"
)

const sourceField = "source"

type lokiErrorReporter struct {
	logger *log.Logger
}

func (r *lokiErrorReporter) Error(msg string, args ...any) {
	r.logger.WithFields(log.Fields{"args": args, sourceField: "loki"}).Error(msg)
}

type lokiHook struct {
	pusher *loki.Pusher
	levels []log.Level
}

func (h *lokiHook) Fire(entry *log.Entry) error {
	// reports about the pusher itself would loop back into it
	if entry.Data[sourceField] == "loki" {
		return nil
	}

	caller := ""
	if entry.Caller != nil {
		caller = filepath.Base(entry.Caller.Function) + ":" + strconv.Itoa(entry.Caller.Line)
	}

	errorType, _ := entry.Data[ErrorTypeField].(string)
	jobID, _ := entry.Data["job_id"].(string)

	h.pusher.Push(loki.LogEntry{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Caller:    caller,
		ErrorType: errorType,
		JobID:     jobID,
	})
	return nil
}

func (h *lokiHook) Levels() []log.Level {
	return h.levels
}

func addLokiHook(ctx context.Context, logger *log.Logger, cfg loki.Config) (*loki.Pusher, error) {
	pusher, err := loki.New(ctx, cfg, &lokiErrorReporter{logger: logger})
	if err != nil {
		return nil, err
	}

	var levels []log.Level
	for _, level := range log.AllLevels {
		if level <= logger.GetLevel() {
			levels = append(levels, level)
		}
	}

	logger.AddHook(&lokiHook{pusher: pusher, levels: levels})
	logger.Info("Loki logging enabled")
	return pusher, nil
}
