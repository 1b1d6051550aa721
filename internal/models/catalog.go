package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups subcategories.
type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Subcategory belongs to exactly one Category.
type Subcategory struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string    `json:"name" gorm:"uniqueIndex;type:varchar(100);not null"`
	CategoryID string    `json:"category_id" gorm:"type:varchar(36);not null;index"`
	Category   *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt  time.Time `json:"-"`
	UpdatedAt  time.Time `json:"-"`
}

// Product is a catalog item owned by its seller.
type Product struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name           string          `json:"name" gorm:"type:varchar(255);not null"`
	Description    string          `json:"description" gorm:"type:text"`
	Price          decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock          int             `json:"stock" gorm:"not null"`
	SKU            *string         `json:"sku" gorm:"type:varchar(100);uniqueIndex"`
	Specifications JSONMap         `json:"specifications" gorm:"type:text"`
	SubcategoryID  *string         `json:"subcategory_id" gorm:"type:varchar(36);index"`
	Subcategory    *Subcategory    `json:"subcategory,omitempty" gorm:"foreignKey:SubcategoryID"`
	CategoryName   *string         `json:"category_name" gorm:"-"`
	SellerID       string          `json:"seller" gorm:"type:varchar(36);not null;index"`
	Images         []ProductImage  `json:"images" gorm:"many2many:product_image_links;"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OwnerID returns the seller, who owns the product.
func (p *Product) OwnerID() string { return p.SellerID }

// DeriveCategoryName fills CategoryName from the preloaded subcategory.
func (p *Product) DeriveCategoryName() {
	p.CategoryName = nil
	if p.Subcategory != nil && p.Subcategory.Category != nil {
		name := p.Subcategory.Category.Name
		p.CategoryName = &name
	}
}

// ProductImage is a stored image. Position keeps the upload order.
type ProductImage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Image     string    `json:"image" gorm:"type:varchar(512);not null"` // storage key
	URL       string    `json:"image_url" gorm:"type:varchar(1024)"`
	Position  int       `json:"-"`
	CreatedAt time.Time `json:"-"`
}

func (i *ProductImage) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
