package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	enqueuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindwell",
		Subsystem: "queue",
		Name:      "tasks_enqueued_total",
		Help:      "Number of tasks put on the queue, including retries.",
	}, []string{"backend", "type"})

	retriedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindwell",
		Subsystem: "queue",
		Name:      "tasks_retried_total",
		Help:      "Number of tasks scheduled for another attempt.",
	}, []string{"backend", "type"})

	deadLetterCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mindwell",
		Subsystem: "queue",
		Name:      "tasks_dead_lettered_total",
		Help:      "Number of tasks that exhausted their attempts.",
	}, []string{"backend", "type"})
)

func init() {
	prometheus.MustRegister(enqueuedCounter, retriedCounter, deadLetterCounter)
}

func recordEnqueued(backend, taskType string) {
	enqueuedCounter.WithLabelValues(backend, taskType).Inc()
}

func recordRetry(backend, taskType string) {
	retriedCounter.WithLabelValues(backend, taskType).Inc()
}

func recordDeadLetter(backend, taskType string) {
	deadLetterCounter.WithLabelValues(backend, taskType).Inc()
}
