package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UsersCreated     prometheus.Counter
	UsersUpdated     prometheus.Counter
	UsersDeleted     prometheus.Counter
	UsersMigrated    prometheus.Counter
	IntegrityFaults  prometheus.Counter
	VersionRedirects prometheus.Counter
	OperationSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_users_created_total",
			Help: "Total number of user records created",
		}),
		UsersUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_users_updated_total",
			Help: "Total number of user records updated",
		}),
		UsersDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_users_deleted_total",
			Help: "Total number of user records deleted",
		}),
		UsersMigrated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_users_migrated_total",
			Help: "Total number of user records lazily migrated to the newest generation",
		}),
		IntegrityFaults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_integrity_faults_total",
			Help: "Total number of detected divergences between user records and their name sub-records",
		}),
		VersionRedirects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nomen_version_redirects_total",
			Help: "Total number of responses redirecting callers off the superseded generation",
		}),
		OperationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nomen_operation_duration_seconds",
			Help:    "Duration of user service operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

func (m *Metrics) IncUpdated() {
	if m != nil {
		m.UsersUpdated.Inc()
	}
}

func (m *Metrics) IncDeleted() {
	if m != nil {
		m.UsersDeleted.Inc()
	}
}

func (m *Metrics) IncMigrated(n int) {
	if m != nil {
		m.UsersMigrated.Add(float64(n))
	}
}

func (m *Metrics) IncIntegrityFault() {
	if m != nil {
		m.IntegrityFaults.Inc()
	}
}

func (m *Metrics) IncVersionRedirect() {
	if m != nil {
		m.VersionRedirects.Inc()
	}
}
