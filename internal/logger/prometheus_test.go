package logger

import (
	"github.com/maxaizer/seek-applier/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"testing"
)

func Test_ErrorCountingHook_ShouldLabelByTypeAndComponent(t *testing.T) {
	logger := Discard()
	addPrometheusHook(logger)

	counter := metrics.ErrorsCounter.WithLabelValues(ErrorTypeSeekUpload, "seek_uploader")
	before := testutil.ToFloat64(counter)

	logger.WithField("component", "seek_uploader").
		WithField(ErrorTypeField, ErrorTypeSeekUpload).
		Error("storage rejected the upload")
	logger.WithField("component", "seek_uploader").Warn("not counted")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func Test_ErrorCountingHook_WithoutFields_ShouldUseUnknown(t *testing.T) {
	logger := Discard()
	addPrometheusHook(logger)

	counter := metrics.ErrorsCounter.WithLabelValues("unknown", "unknown")
	before := testutil.ToFloat64(counter)

	logger.Error("something went wrong")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
