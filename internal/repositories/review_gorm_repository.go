package repositories

import (
	"context"
	"fmt"

	"cardanocart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMReviewRepository is a GORM implementation of ReviewRepository.
type GORMReviewRepository struct {
	db *gorm.DB
}

// NewGORMReviewRepository creates a new instance of GORMReviewRepository.
func NewGORMReviewRepository(db *gorm.DB) *GORMReviewRepository {
	return &GORMReviewRepository{db: db}
}

func (r *GORMReviewRepository) ListByProduct(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := conn(ctx, r.db).Where("product_id = ?", productID).Order("created_at, id").Find(&reviews).Error
	if err != nil {
		return nil, wrap("failed to list reviews", err)
	}
	return reviews, nil
}

// GetForProduct returns the review only when it belongs to productID.
func (r *GORMReviewRepository) GetForProduct(ctx context.Context, productID, reviewID string) (*models.Review, error) {
	var review models.Review
	err := conn(ctx, r.db).First(&review, "id = ? AND product_id = ?", reviewID, productID).Error
	if err != nil {
		return nil, wrap(fmt.Sprintf("failed to get review %s of product %s", reviewID, productID), err)
	}
	return &review, nil
}

func (r *GORMReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	return wrap("failed to create review", conn(ctx, r.db).Create(review).Error)
}

func (r *GORMReviewRepository) Update(ctx context.Context, review *models.Review) error {
	res := conn(ctx, r.db).Model(review).Select("Rating", "Comment", "UpdatedAt").Updates(review)
	if res.Error != nil {
		return wrap("failed to update review", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s not found for update: %w", review.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMReviewRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return wrap("failed to delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("review with ID %s not found for deletion: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GORMReviewRepository) DeleteByProduct(ctx context.Context, productID string) error {
	err := conn(ctx, r.db).Where("product_id = ?", productID).Delete(&models.Review{}).Error
	return wrap("failed to delete product reviews", err)
}
