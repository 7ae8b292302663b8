package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracker_scrape_cycle_duration_seconds",
			Help:    "Duration of each full scraping cycle in seconds.",
			Buckets: []float64{10, 30, 60, 300, 900, 1800},
		},
	)
	SourceScrapeDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "tracker_source_scrape_duration_seconds",
			Help:       "Duration of scraping each configured source.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"source"},
	)
	JobsOpenedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_jobs_opened_total",
			Help: "Total number of jobs that entered the open state.",
		},
	)
	JobsClosedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_jobs_closed_total",
			Help: "Total number of jobs that were detected as closed.",
		},
	)
	JobsUpdatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_jobs_updated_total",
			Help: "Total number of jobs with materially changed content.",
		},
	)
	OpenJobsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_jobs_open",
			Help: "Number of currently open jobs in the store.",
		},
	)
)

func StartMetricsServer() {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(CycleDuration)
	prometheus.MustRegister(SourceScrapeDuration)
	prometheus.MustRegister(JobsOpenedCounter)
	prometheus.MustRegister(JobsClosedCounter)
	prometheus.MustRegister(JobsUpdatedCounter)
	prometheus.MustRegister(OpenJobsGauge)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(":8080", nil))
	}()
}
