package instance

import (
	"os"

	"github.com/angelmondragon/harvestlink-backend/pkg/env"
)

const fallbackID = "worker-0"

// GetID identifies this process in worker logs.
// HARVESTLINK_INSTANCE_ID wins, then the host name.
func GetID() string {
	if id := env.Get("", "HARVESTLINK_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
