package config

import (
	"github.com/marmos91/dittodir/pkg/metrics"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	// Directory records service and store operations (never nil, uses noop if disabled)
	Directory metrics.DirectoryMetrics

	// API records HTTP traffic (never nil, uses noop if disabled)
	API metrics.APIMetrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled:
//   - Returns nil server
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{
			Server:    nil,
			Directory: metrics.NewNoopDirectoryMetrics(),
			API:       metrics.NewNoopAPIMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port:            cfg.Metrics.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	return &MetricsResult{
		Server:    server,
		Directory: metrics.NewDirectoryMetrics(cfg.Store.Type),
		API:       metrics.NewAPIMetrics(),
	}
}
