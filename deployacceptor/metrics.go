package deployacceptor

import "github.com/prometheus/client_golang/prometheus"

// acceptorMetrics tracks the admission pipeline's outcomes and latency.
type acceptorMetrics struct {
	// acceptedTotal counts deploys admitted and newly stored.
	acceptedTotal prometheus.Counter

	// invalidTotal counts deploys rejected at any stage.
	invalidTotal prometheus.Counter

	// validationDuration observes the wall time of successful admission
	// runs, from submission to storage.
	validationDuration prometheus.Histogram
}

// newAcceptorMetrics creates the pipeline's collectors, registering them
// against the given registerer if one is supplied.
func newAcceptorMetrics(
	registry prometheus.Registerer) (*acceptorMetrics, error) {

	m := &acceptorMetrics{
		acceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deploy_acceptor",
			Name:      "accepted_total",
			Help: "Total number of deploys admitted and newly " +
				"stored.",
		}),
		invalidTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deploy_acceptor",
			Name:      "invalid_total",
			Help:      "Total number of deploys rejected.",
		}),
		validationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "deploy_acceptor",
				Name:      "validation_duration_seconds",
				Help: "Time spent validating an admitted " +
					"deploy.",
			},
		),
	}

	if registry != nil {
		collectors := []prometheus.Collector{
			m.acceptedTotal, m.invalidTotal, m.validationDuration,
		}
		for _, collector := range collectors {
			if err := registry.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}
