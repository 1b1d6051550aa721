package models

import "time"

// BlacklistedToken records a refresh token that has been rotated or revoked.
type BlacklistedToken struct {
	JTI       string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"type:varchar(36);not null;index"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&BlacklistedToken{},
		&Category{},
		&Subcategory{},
		&ProductImage{},
		&Product{},
		&Review{},
		&Order{},
		&OrderItem{},
	}
}
