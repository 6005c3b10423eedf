// Package metric manages Prometheus metric registration for the client.
// Each subsystem (gateway session, HTTP layer) builds its own metric struct
// and registers it here, so an application embedding several clients can
// scrape them from one registry without collisions.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChristopherJHart/disnake/errors"
)

// Namespace is the prefix shared by all metrics exported by this library
const Namespace = "disnake"

// Registrar defines the interface for registering subsystem metrics
type Registrar interface {
	Register(subsystem, metricName string, collector prometheus.Collector) error
	Unregister(subsystem, metricName string) bool
}

// Registry manages the registration and lifecycle of metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry
func NewRegistry() *Registry {
	return &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		registered:         make(map[string]prometheus.Collector),
	}
}

// PrometheusRegistry returns the underlying Prometheus registry for scraping
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register registers a collector under subsystem.metricName. Registering the
// same name twice is an invalid-class error so misconfigured callers fail
// fast instead of silently double-counting.
func (r *Registry) Register(subsystem, metricName string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", subsystem, metricName)
	if _, exists := r.registered[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for subsystem %s", metricName, subsystem),
			"Registry", "Register", "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			r.registered[key] = already.ExistingCollector
			return nil
		}
		return errors.WrapFatal(err, "Registry", "Register", "register collector")
	}

	r.registered[key] = collector
	return nil
}

// Unregister removes a collector. Returns true if it was registered.
func (r *Registry) Unregister(subsystem, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", subsystem, metricName)
	collector, exists := r.registered[key]
	if !exists {
		return false
	}
	delete(r.registered, key)
	return r.prometheusRegistry.Unregister(collector)
}
