package branch

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirror the gauge/counter-per-subsystem style of
// euphoria.io/heim/heimctl/worker/metrics.go: a handful of package-level
// collectors, registered once, updated from the fork/reap hot path.
var (
	creditAvailableGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: "branch",
		Name:      "credit_available",
		Help:      "Free fan-out credit units on the most recently acquired or released CreditHandle.",
	})

	forksSpawnedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "branch",
		Name:      "forks_spawned_total",
		Help:      "Number of branches started on their own worker.",
	})

	forksInlineCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "branch",
		Name:      "forks_inline_total",
		Help:      "Number of branches that fell back to synchronous in-line execution.",
	})

	childrenReapedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "branch",
		Name:      "children_reaped_total",
		Help:      "Number of ChildDone/PassOnResult events drained by a reaper.",
	})

	branchErrorsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "branch",
		Name:      "errors_total",
		Help:      "Number of branch errors observed: once per worker that terminated with an error, and once per error event a reaper processed.",
	})
)

func init() {
	prometheus.MustRegister(
		creditAvailableGauge,
		forksSpawnedCounter,
		forksInlineCounter,
		childrenReapedCounter,
		branchErrorsCounter,
	)
}

func recordCreditAvailable(h *CreditHandle) {
	creditAvailableGauge.Set(float64(h.Available()))
}
