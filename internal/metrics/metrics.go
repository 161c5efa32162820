package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ShellAttempts counts individual command executions, including retries.
	ShellAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deploykit_shell_attempts_total",
		Help: "Number of shell command execution attempts, retries included",
	})

	// ShellFailures counts commands that exhausted all retry attempts.
	ShellFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deploykit_shell_failures_total",
		Help: "Number of shell commands that failed after all retry attempts",
	})

	// ShellLaunchFailures counts commands whose process could not be started.
	ShellLaunchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deploykit_shell_launch_failures_total",
		Help: "Number of shell commands whose process could not be started",
	})

	// LocationsMigrations counts legacy-to-unified locations file migrations.
	LocationsMigrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deploykit_locations_migrations_total",
		Help: "Number of legacy locations files migrated to the unified format",
	})
)
