package workers

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindwell",
			Subsystem: "worker",
			Name:      "tasks_processed_total",
			Help:      "Tasks handled by the worker pool, by outcome.",
		},
		[]string{"type", "result"},
	)
	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mindwell",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Time spent in task handlers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type"},
	)
	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mindwell",
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Scheduled job runs, by outcome.",
		},
		[]string{"job", "result"},
	)
)

func init() {
	prometheus.MustRegister(tasksProcessed, taskDuration, jobRuns)
}
