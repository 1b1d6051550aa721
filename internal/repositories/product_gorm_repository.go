package repositories

import (
	"context"
	"fmt"

	"cardanocart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Subcategory.Category")
}

// List returns the products matching filter and the total count before paging.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := conn(ctx, r.db).Model(&models.Product{})
	if filter.SubcategoryID != "" {
		query = query.Where("subcategory_id = ?", filter.SubcategoryID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, wrap("failed to count products", err)
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	var products []models.Product
	if err := withDetails(query).Order("created_at, id").Find(&products).Error; err != nil {
		return nil, 0, wrap("failed to list products", err)
	}
	for i := range products {
		products[i].DeriveCategoryName()
	}
	return products, total, nil
}

// GetByID retrieves a product with its images and subcategory.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := withDetails(conn(ctx, r.db)).First(&product, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("failed to get product by ID %s", id), err)
	}
	product.DeriveCategoryName()
	return &product, nil
}

// Create inserts the product row only. Images are attached with AddImages.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	return wrap("failed to create product", conn(ctx, r.db).Omit(clause.Associations).Create(product).Error)
}

// Update overwrites every column, zero values and NULLs included, except
// the seller and creation time.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := conn(ctx, r.db).Model(product).
		Select("*").
		Omit("ID", "SellerID", "CreatedAt", clause.Associations).
		Updates(product)
	if res.Error != nil {
		return wrap("failed to update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete removes the product and its image links. Image rows are left behind.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	db := conn(ctx, r.db)
	if err := db.Model(&models.Product{ID: id}).Association("Images").Clear(); err != nil {
		return wrap("failed to unlink product images", err)
	}
	res := db.Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return wrap("failed to delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// AddImages creates images and links them after the product's current ones,
// keeping the slice order.
func (r *GORMProductRepository) AddImages(ctx context.Context, product *models.Product, images []models.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	offset := len(product.Images)
	for i := range images {
		images[i].Position = offset + i
	}

	db := conn(ctx, r.db)
	if err := db.Create(&images).Error; err != nil {
		return wrap("failed to create product images", err)
	}
	if err := db.Model(product).Association("Images").Append(&images); err != nil {
		return wrap("failed to link product images", err)
	}
	return nil
}

// ReplaceImages unlinks every current image, then adds images.
func (r *GORMProductRepository) ReplaceImages(ctx context.Context, product *models.Product, images []models.ProductImage) error {
	if err := conn(ctx, r.db).Model(product).Association("Images").Clear(); err != nil {
		return wrap("failed to unlink product images", err)
	}
	product.Images = nil
	return r.AddImages(ctx, product, images)
}

// ClearSubcategory sets subcategory_id to NULL on products in any of the given subcategories.
func (r *GORMProductRepository) ClearSubcategory(ctx context.Context, subcategoryIDs ...string) error {
	if len(subcategoryIDs) == 0 {
		return nil
	}
	err := conn(ctx, r.db).Model(&models.Product{}).
		Where("subcategory_id IN ?", subcategoryIDs).
		Update("subcategory_id", nil).Error
	return wrap("failed to detach products from subcategory", err)
}

// AdjustStock adds delta to the stock in one statement. A decrement that
// would make stock negative changes nothing and returns ErrInsufficientStock.
func (r *GORMProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	res := conn(ctx, r.db).Model(&models.Product{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return wrap("failed to adjust stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
	}
	return nil
}
