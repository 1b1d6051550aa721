package services

import (
	"context"
	"errors"
	"fmt"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/policy"
	"cardanocart/internal/repositories"

	"github.com/sirupsen/logrus"
)

// ReviewService manages reviews nested under a product.
type ReviewService struct {
	reviews  repositories.ReviewRepository
	products repositories.ProductRepository
}

func NewReviewService(reviews repositories.ReviewRepository, products repositories.ProductRepository) *ReviewService {
	return &ReviewService{reviews: reviews, products: products}
}

// ReviewInput holds the writable review fields. Nil fields are left unchanged on update.
type ReviewInput struct {
	Rating  *int
	Comment *string
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperr.Validation("Invalid review data", map[string]string{
			"rating": "Ensure this value is between 1 and 5.",
		})
	}
	return nil
}

func (s *ReviewService) requireProduct(ctx context.Context, productID string) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Product")
		}
		return fmt.Errorf("failed to get product: %w", err)
	}
	return nil
}

// List returns the reviews of an existing product.
func (s *ReviewService) List(ctx context.Context, productID string) ([]models.Review, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	reviews, err := s.reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// Get returns the review only when it belongs to productID.
func (s *ReviewService) Get(ctx context.Context, productID, reviewID string) (*models.Review, error) {
	review, err := s.reviews.GetForProduct(ctx, productID, reviewID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Review")
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// Create records a review by author on an existing product.
func (s *ReviewService) Create(ctx context.Context, author policy.Actor, productID string, in ReviewInput) (*models.Review, error) {
	if !author.IsAuthenticated() {
		return nil, apperr.PermissionDenied()
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	if in.Rating == nil {
		return nil, apperr.Missing("rating")
	}
	if err := validateRating(*in.Rating); err != nil {
		return nil, err
	}

	review := &models.Review{ProductID: productID, UserID: author.ID, Rating: *in.Rating}
	if in.Comment != nil {
		review.Comment = *in.Comment
	}
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	logrus.WithFields(logrus.Fields{"review_id": review.ID, "product_id": productID, "user_id": author.ID}).Info("Review created")
	return review, nil
}

// Update changes rating and comment. Only the author or an admin may update.
// Authorize checks that the review exists under the product and that actor
// may change it.
func (s *ReviewService) Authorize(ctx context.Context, actor policy.Actor, productID, reviewID string) error {
	review, err := s.Get(ctx, productID, reviewID)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, review) {
		return apperr.PermissionDenied()
	}
	return nil
}

func (s *ReviewService) Update(ctx context.Context, actor policy.Actor, productID, reviewID string, in ReviewInput) (*models.Review, error) {
	review, err := s.Get(ctx, productID, reviewID)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, review) {
		return nil, apperr.PermissionDenied()
	}
	if in.Rating != nil {
		if err := validateRating(*in.Rating); err != nil {
			return nil, err
		}
		review.Rating = *in.Rating
	}
	if in.Comment != nil {
		review.Comment = *in.Comment
	}
	if err := s.reviews.Update(ctx, review); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Review")
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return review, nil
}

// Delete removes the review. Only the author or an admin may delete.
func (s *ReviewService) Delete(ctx context.Context, actor policy.Actor, productID, reviewID string) error {
	review, err := s.Get(ctx, productID, reviewID)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, review) {
		return apperr.PermissionDenied()
	}
	if err := s.reviews.Delete(ctx, review.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Review")
		}
		return fmt.Errorf("failed to delete review: %w", err)
	}
	logrus.WithFields(logrus.Fields{"review_id": review.ID, "actor_id": actor.ID}).Info("Review deleted")
	return nil
}
