package metrics

import (
	"errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applier_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type", "component"},
	)
	JobsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applier_jobs_total",
			Help: "Total number of handled jobs by outcome.",
		},
		[]string{"outcome"},
	)
	ApplicationsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applier_applications_total",
			Help: "Total number of submission attempts by channel and result.",
		},
		[]string{"channel", "result"},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "applier_run_duration_seconds",
			Help:    "Duration of each pass over the jobs list in seconds.",
			Buckets: []float64{60, 300, 900, 1800, 3600, 7200},
		},
	)
	JobStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "applier_job_step_duration_seconds",
			Help:       "Duration of each step of job processing.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	UploadPhaseDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "applier_upload_phase_duration_seconds",
			Help:       "Duration of each attachment upload phase.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"phase"},
	)
)

func StartMetricsServer(address string, logger log.FieldLogger) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(JobsCounter)
	prometheus.MustRegister(ApplicationsCounter)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(JobStepDuration)
	prometheus.MustRegister(UploadPhaseDuration)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(address, mux)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()
	logger.Infof("metrics exposed on %s/metrics", address)
}
