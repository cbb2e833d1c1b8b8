package instance

import (
	"os"
	"strings"
)

// EnvWorkerID overrides the derived instance identifier.
const EnvWorkerID = "STOCKWATCH_WORKER_ID"

// ID returns the worker instance identifier: STOCKWATCH_WORKER_ID, then the
// hostname, then a static default.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(EnvWorkerID)); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
