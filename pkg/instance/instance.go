package instance

import (
	"os"

	"github.com/angelmondragon/shopfront-backend/pkg/env"
)

const fallbackID = "shopfront-0"

// GetID returns the process instance identifier used in log fields.
// SHOPFRONT_INSTANCE_ID wins, then the hostname.
func GetID() string {
	if id := env.Get("SHOPFRONT_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
