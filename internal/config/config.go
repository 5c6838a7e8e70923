package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Spec is the environment configuration needed for the service to start.
// Values are read from TASKDESK_* variables.
type Spec struct {
	Port int `envconfig:"port" default:"8080"`

	// DSN enables the Postgres store; when empty the in-memory store is used.
	DSN string `envconfig:"dsn"`

	SessionTTL time.Duration `envconfig:"session_ttl" default:"168h"`

	// PruneInterval drives the background expired-session sweep; zero
	// disables it.
	PruneInterval time.Duration `envconfig:"prune_interval" default:"1h"`

	RateBurst  int `envconfig:"rate_burst" default:"20"`
	RatePerSec int `envconfig:"rate_per_sec" default:"10"`

	DBMaxOpenConns    int           `envconfig:"db_max_open_conns" default:"25"`
	DBMaxIdleConns    int           `envconfig:"db_max_idle_conns" default:"10"`
	DBConnMaxLifetime time.Duration `envconfig:"db_conn_max_lifetime" default:"30m"`
}

// Load reads the specification from the environment.
func Load() (Spec, error) {
	var s Spec
	if err := envconfig.Process("taskdesk", &s); err != nil {
		return Spec{}, err
	}
	return s, nil
}
