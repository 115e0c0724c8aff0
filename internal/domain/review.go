package domain

import (
	"time"
)

// Review represents a shop review submitted by a customer.
//
// A review is either active or soft-deleted. Deletion is terminal: a deleted
// review is invisible to every read path and can never be reactivated. The
// owner response is the only field that may change while the review is active.
type Review struct {
	ID        string     `json:"id"`
	ShopID    string     `json:"shop_id"`
	AuthorID  string     `json:"author_id"`
	Rating    int        `json:"rating"`
	Comment   string     `json:"comment"`
	Response  *string    `json:"response,omitempty"`
	IsActive  bool       `json:"is_active"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// MinRating and MaxRating bound the accepted rating scale.
const (
	MinRating = 1
	MaxRating = 5
)

// IsValidRating reports whether r is within the accepted rating scale.
func IsValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
