package domain

import (
	"time"
)

// Address is the postal address of a shop, stored as JSONB.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// Contact holds the contact details of a shop, stored as JSONB.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// BusinessHours maps a lowercase weekday name to an opening-hours string,
// e.g. "monday" -> "09:00-18:00". Free-form, not validated.
type BusinessHours map[string]string

// Shop represents a local shop listed in the directory.
//
// RatingSum and RatingCount are the review aggregates maintained by the
// rating ledger. The average is always derived from them on read and never
// stored on its own.
type Shop struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"owner_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	CategoryID    *string       `json:"category_id,omitempty"`
	Longitude     float64       `json:"longitude"`
	Latitude      float64       `json:"latitude"`
	Address       Address       `json:"address"`
	Contact       Contact       `json:"contact"`
	BusinessHours BusinessHours `json:"business_hours,omitempty"`
	LogoURL       *string       `json:"logo_url,omitempty"`
	RatingSum     int64         `json:"-"`
	RatingCount   int           `json:"rating_count"`
	AverageRating float64       `json:"average_rating"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ComputeAverage derives the average rating from the aggregates. A shop with
// no reviews has an average of 0.
func ComputeAverage(sum int64, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// RefreshAverage recomputes the derived AverageRating field from the stored
// aggregates. Called after every read or ledger adjustment.
func (s *Shop) RefreshAverage() {
	s.AverageRating = ComputeAverage(s.RatingSum, s.RatingCount)
}

// ShopDetail is a shop enriched with its active products and the first page
// of its active reviews.
type ShopDetail struct {
	Shop
	Products []Product `json:"products"`
	Reviews  []Review  `json:"reviews"`
}
