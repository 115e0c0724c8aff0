package domain

import (
	"time"
)

// Product represents an item sold by a shop.
//
// Products share their shop's lifecycle: soft-deleting a shop deactivates all
// of its products. A product can also be deactivated on its own.
type Product struct {
	ID          string    `json:"id"`
	ShopID      string    `json:"shop_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	ImageURL    *string   `json:"image_url,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
