package models

import "time"

// Review is a user's rating of a product.
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;index"`
	UserID    string    `json:"user" gorm:"type:varchar(36);not null;index"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnerID returns the author, who owns the review.
func (r *Review) OwnerID() string { return r.UserID }
