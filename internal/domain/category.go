package domain

import (
	"time"
)

// Category represents a shop category. Categories are flat: the discovery
// filter treats them as opaque identifiers.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IconURL   *string   `json:"icon_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
