package logger

import (
	"github.com/maxaizer/seek-applier/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// errorCountingHook feeds every logged error into the errors counter, labelled by the
// error type and the component that logged it.
type errorCountingHook struct{}

func (h *errorCountingHook) Fire(entry *log.Entry) error {
	metrics.ErrorsCounter.WithLabelValues(label(entry, ErrorTypeField), label(entry, "component")).Inc()
	return nil
}

func (h *errorCountingHook) Levels() []log.Level {
	return []log.Level{
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func label(entry *log.Entry, field string) string {
	if value, ok := entry.Data[field].(string); ok && value != "" {
		return value
	}
	return "unknown"
}

func addPrometheusHook(logger *log.Logger) {
	logger.AddHook(&errorCountingHook{})
}
