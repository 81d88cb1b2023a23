package config

import "github.com/marmos91/dittodir/pkg/api"

// APIServerConfig converts the api and server sections into the API server
// configuration.
func (c *Config) APIServerConfig() api.Config {
	return api.Config{
		Port:              c.API.Port,
		OwnerHeader:       c.API.OwnerHeader,
		ReadTimeout:       c.API.ReadTimeout,
		WriteTimeout:      c.API.WriteTimeout,
		IdleTimeout:       c.API.IdleTimeout,
		MaxUploadBytes:    c.API.MaxUploadBytes,
		ShutdownTimeout:   c.Server.ShutdownTimeout,
		RequestsPerSecond: c.API.RateLimit.RequestsPerSecond,
		Burst:             c.API.RateLimit.Burst,
	}
}
