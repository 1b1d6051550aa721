package repositories

import (
	"context"

	"cardanocart/internal/models"
)

// ProductFilter narrows and pages a product listing. Zero values disable
// the corresponding constraint.
type ProductFilter struct {
	Page          int
	Limit         int
	SubcategoryID string
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	AddImages(ctx context.Context, product *models.Product, images []models.ProductImage) error
	ReplaceImages(ctx context.Context, product *models.Product, images []models.ProductImage) error
	ClearSubcategory(ctx context.Context, subcategoryIDs ...string) error
	AdjustStock(ctx context.Context, id string, delta int) error
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	List(ctx context.Context) ([]models.Category, error)
	GetByID(ctx context.Context, id string) (*models.Category, error)
	Create(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id string) error
}

// SubcategoryRepository defines the interface for subcategory data access.
type SubcategoryRepository interface {
	List(ctx context.Context, categoryID string) ([]models.Subcategory, error)
	GetByID(ctx context.Context, id string) (*models.Subcategory, error)
	IDsByCategory(ctx context.Context, categoryID string) ([]string, error)
	Create(ctx context.Context, subcategory *models.Subcategory) error
	Update(ctx context.Context, subcategory *models.Subcategory) error
	Delete(ctx context.Context, id string) error
	DeleteByCategory(ctx context.Context, categoryID string) error
}

// ReviewRepository defines the interface for review data access.
type ReviewRepository interface {
	ListByProduct(ctx context.Context, productID string) ([]models.Review, error)
	GetForProduct(ctx context.Context, productID, reviewID string) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id string) error
	DeleteByProduct(ctx context.Context, productID string) error
}
