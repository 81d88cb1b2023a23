package metrics

import (
	"time"

	"github.com/marmos91/dittodir/pkg/directory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DirectoryMetrics provides observability for directory and file service
// operations and the record store calls they make.
//
// This interface is optional - if not provided to the services, operations
// proceed without metrics collection (zero overhead).
//
// Example usage:
//
//	// With metrics enabled
//	m := metrics.NewDirectoryMetrics("badger")
//	svc := service.NewDirectoryService(store, m)
//
//	// Without metrics (no-op)
//	svc := service.NewDirectoryService(store, nil)
type DirectoryMetrics interface {
	// RecordOperation records a completed service operation.
	//
	// Parameters:
	//   - operation: Operation name (e.g., "CreateFolder", "UploadFile")
	//   - duration: Time taken to complete the operation
	//   - err: Error if operation failed, nil if successful
	RecordOperation(operation string, duration time.Duration, err error)

	// RecordStoreOperation records a record store call.
	//
	// Parameters:
	//   - operation: Store method (e.g., "FindAllByOwner", "SaveAll")
	//   - records: Number of records read or written
	//   - duration: Time taken
	//   - err: Error if failed
	RecordStoreOperation(operation string, records int, duration time.Duration, err error)

	// SetTreeSize records the number of nodes in the most recently
	// expanded tree.
	SetTreeSize(nodes int)
}

// directoryMetrics is the Prometheus implementation of DirectoryMetrics.
type directoryMetrics struct {
	storeType         string
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	storeOpsTotal     *prometheus.CounterVec
	storeOpsDuration  *prometheus.HistogramVec
	storeOpsRecords   *prometheus.HistogramVec
	treeSize          prometheus.Histogram
}

// NewDirectoryMetrics creates a DirectoryMetrics instance on the global
// registry.
//
// Parameters:
//   - storeType: Type of record store (e.g., "memory", "badger", "s3")
//     Used as a label to distinguish metrics from different backends.
//
// Returns a no-op implementation if metrics are not enabled.
func NewDirectoryMetrics(storeType string) DirectoryMetrics {
	if !IsEnabled() {
		return NewNoopDirectoryMetrics()
	}
	return NewDirectoryMetricsWith(GetRegistry(), storeType)
}

// NewDirectoryMetricsWith registers directory metrics on reg.
func NewDirectoryMetricsWith(reg prometheus.Registerer, storeType string) DirectoryMetrics {
	return &directoryMetrics{
		storeType: storeType,
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodir_operations_total",
				Help: "Total number of directory operations by store type, operation, status and error code",
			},
			[]string{"store_type", "operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodir_operation_duration_seconds",
				Help: "Duration of directory operations in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.0005, // 500µs
					0.001,  // 1ms
					0.005,  // 5ms
					0.01,   // 10ms
					0.025,  // 25ms
					0.05,   // 50ms
					0.1,    // 100ms
					0.25,   // 250ms
					0.5,    // 500ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
		storeOpsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dittodir_store_operations_total",
				Help: "Total number of record store calls by store type, method and status",
			},
			[]string{"store_type", "operation", "status"},
		),
		storeOpsDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dittodir_store_operation_duration_seconds",
				Help: "Duration of record store calls in seconds",
				Buckets: []float64{
					0.0001, // 100µs
					0.001,  // 1ms
					0.01,   // 10ms
					0.1,    // 100ms
					1.0,    // 1s
				},
			},
			[]string{"store_type", "operation"},
		),
		storeOpsRecords: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dittodir_store_operation_records",
				Help:    "Number of records read or written per record store call",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"store_type", "operation"},
		),
		treeSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dittodir_tree_nodes",
				Help:    "Number of nodes in expanded owner trees",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
				ConstLabels: prometheus.Labels{
					"store_type": storeType,
				},
			},
		),
	}
}

func (m *directoryMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	errorCode := ""
	if err != nil {
		if code, ok := directory.CodeOf(err); ok {
			errorCode = code.String()
		} else {
			errorCode = "Unknown"
		}
	}

	m.operationsTotal.WithLabelValues(m.storeType, operation, status(err), errorCode).Inc()
	m.operationDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
}

func (m *directoryMetrics) RecordStoreOperation(operation string, records int, duration time.Duration, err error) {
	m.storeOpsTotal.WithLabelValues(m.storeType, operation, status(err)).Inc()
	m.storeOpsDuration.WithLabelValues(m.storeType, operation).Observe(duration.Seconds())
	if err == nil {
		m.storeOpsRecords.WithLabelValues(m.storeType, operation).Observe(float64(records))
	}
}

func (m *directoryMetrics) SetTreeSize(nodes int) {
	m.treeSize.Observe(float64(nodes))
}

// noopDirectoryMetrics is a no-op implementation of DirectoryMetrics with zero overhead.
type noopDirectoryMetrics struct{}

// NewNoopDirectoryMetrics returns a DirectoryMetrics that discards everything.
func NewNoopDirectoryMetrics() DirectoryMetrics {
	return noopDirectoryMetrics{}
}

func (noopDirectoryMetrics) RecordOperation(operation string, duration time.Duration, err error) {}
func (noopDirectoryMetrics) RecordStoreOperation(operation string, records int, duration time.Duration, err error) {
}
func (noopDirectoryMetrics) SetTreeSize(nodes int) {}
