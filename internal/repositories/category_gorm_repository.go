package repositories

import (
	"context"
	"fmt"

	"cardanocart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	db *gorm.DB
}

// NewGORMCategoryRepository creates a new instance of GORMCategoryRepository.
func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{db: db}
}

func (r *GORMCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := conn(ctx, r.db).Order("name").Find(&categories).Error; err != nil {
		return nil, wrap("failed to list categories", err)
	}
	return categories, nil
}

func (r *GORMCategoryRepository) GetByID(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	if err := conn(ctx, r.db).First(&category, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("failed to get category by ID %s", id), err)
	}
	return &category, nil
}

func (r *GORMCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.New().String()
	}
	return wrap("failed to create category", conn(ctx, r.db).Create(category).Error)
}

func (r *GORMCategoryRepository) Update(ctx context.Context, category *models.Category) error {
	res := conn(ctx, r.db).Model(category).Select("Name").Updates(category)
	if res.Error != nil {
		return wrap("failed to update category", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category with ID %s not found for update: %w", category.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMCategoryRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		return wrap("failed to delete category", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("category with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

// GORMSubcategoryRepository is a GORM implementation of SubcategoryRepository.
type GORMSubcategoryRepository struct {
	db *gorm.DB
}

// NewGORMSubcategoryRepository creates a new instance of GORMSubcategoryRepository.
func NewGORMSubcategoryRepository(db *gorm.DB) *GORMSubcategoryRepository {
	return &GORMSubcategoryRepository{db: db}
}

// List returns subcategories with their category, optionally restricted to categoryID.
func (r *GORMSubcategoryRepository) List(ctx context.Context, categoryID string) ([]models.Subcategory, error) {
	query := conn(ctx, r.db).Preload("Category")
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	var subcategories []models.Subcategory
	if err := query.Order("name").Find(&subcategories).Error; err != nil {
		return nil, wrap("failed to list subcategories", err)
	}
	return subcategories, nil
}

func (r *GORMSubcategoryRepository) GetByID(ctx context.Context, id string) (*models.Subcategory, error) {
	var subcategory models.Subcategory
	if err := conn(ctx, r.db).Preload("Category").First(&subcategory, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("failed to get subcategory by ID %s", id), err)
	}
	return &subcategory, nil
}

func (r *GORMSubcategoryRepository) IDsByCategory(ctx context.Context, categoryID string) ([]string, error) {
	var ids []string
	err := conn(ctx, r.db).Model(&models.Subcategory{}).
		Where("category_id = ?", categoryID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("failed to list subcategory ids", err)
	}
	return ids, nil
}

func (r *GORMSubcategoryRepository) Create(ctx context.Context, subcategory *models.Subcategory) error {
	if subcategory.ID == "" {
		subcategory.ID = uuid.New().String()
	}
	err := conn(ctx, r.db).Omit("Category").Create(subcategory).Error
	return wrap("failed to create subcategory", err)
}

func (r *GORMSubcategoryRepository) Update(ctx context.Context, subcategory *models.Subcategory) error {
	res := conn(ctx, r.db).Model(subcategory).Select("Name", "CategoryID").Updates(subcategory)
	if res.Error != nil {
		return wrap("failed to update subcategory", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subcategory with ID %s not found for update: %w", subcategory.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMSubcategoryRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Subcategory{}, "id = ?", id)
	if res.Error != nil {
		return wrap("failed to delete subcategory", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("subcategory with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GORMSubcategoryRepository) DeleteByCategory(ctx context.Context, categoryID string) error {
	err := conn(ctx, r.db).Where("category_id = ?", categoryID).Delete(&models.Subcategory{}).Error
	return wrap("failed to delete subcategories", err)
}
