package instance

import "github.com/angelmondragon/splitpay-backend/pkg/env"

// ID returns the process identifier attached to startup logs. A platform dyno
// name takes precedence over WORKER_ID.
func ID() string {
	return env.First("local", "DYNO", "WORKER_ID")
}
