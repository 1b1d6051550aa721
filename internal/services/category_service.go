package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/repositories"

	"github.com/sirupsen/logrus"
)

// CategoryService manages categories and subcategories. Writes require an
// authenticated caller but no ownership.
type CategoryService struct {
	categories    repositories.CategoryRepository
	subcategories repositories.SubcategoryRepository
	products      repositories.ProductRepository
	tx            repositories.TxManager
}

func NewCategoryService(
	categories repositories.CategoryRepository,
	subcategories repositories.SubcategoryRepository,
	products repositories.ProductRepository,
	tx repositories.TxManager,
) *CategoryService {
	return &CategoryService{
		categories:    categories,
		subcategories: subcategories,
		products:      products,
		tx:            tx,
	}
}

// SubcategoryInput holds the writable subcategory fields.
type SubcategoryInput struct {
	Name       *string
	CategoryID *string
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Category")
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, name *string) (*models.Category, error) {
	if blank(name) {
		return nil, apperr.Missing("name")
	}
	category := &models.Category{Name: strings.TrimSpace(*name)}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, categoryWriteFailed("Category", err)
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id string, name *string) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if blank(name) {
		return nil, apperr.Missing("name")
	}
	category.Name = strings.TrimSpace(*name)
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, categoryWriteFailed("Category", err)
	}
	return category, nil
}

// DeleteCategory removes the category and its subcategories. Products in
// those subcategories are kept without a subcategory.
func (s *CategoryService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ids, err := s.subcategories.IDsByCategory(ctx, id)
		if err != nil {
			return err
		}
		if err := s.products.ClearSubcategory(ctx, ids...); err != nil {
			return err
		}
		if err := s.subcategories.DeleteByCategory(ctx, id); err != nil {
			return err
		}
		return s.categories.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Category")
		}
		return fmt.Errorf("failed to delete category: %w", err)
	}
	logrus.WithField("category_id", id).Info("Category deleted")
	return nil
}

func (s *CategoryService) ListSubcategories(ctx context.Context, categoryID string) ([]models.Subcategory, error) {
	subcategories, err := s.subcategories.List(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subcategories: %w", err)
	}
	return subcategories, nil
}

func (s *CategoryService) GetSubcategory(ctx context.Context, id string) (*models.Subcategory, error) {
	subcategory, err := s.subcategories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Subcategory")
		}
		return nil, fmt.Errorf("failed to get subcategory: %w", err)
	}
	return subcategory, nil
}

func (s *CategoryService) validateSubcategory(ctx context.Context, in SubcategoryInput) error {
	var missing []string
	if blank(in.Name) {
		missing = append(missing, "name")
	}
	if blank(in.CategoryID) {
		missing = append(missing, "category_id")
	}
	if len(missing) > 0 {
		return apperr.Missing(missing...)
	}
	if _, err := s.categories.GetByID(ctx, *in.CategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.InvalidReference("category_id", "Category does not exist.")
		}
		return fmt.Errorf("failed to resolve category: %w", err)
	}
	return nil
}

func (s *CategoryService) CreateSubcategory(ctx context.Context, in SubcategoryInput) (*models.Subcategory, error) {
	if err := s.validateSubcategory(ctx, in); err != nil {
		return nil, err
	}
	subcategory := &models.Subcategory{
		Name:       strings.TrimSpace(*in.Name),
		CategoryID: *in.CategoryID,
	}
	if err := s.subcategories.Create(ctx, subcategory); err != nil {
		return nil, categoryWriteFailed("Subcategory", err)
	}
	return s.GetSubcategory(ctx, subcategory.ID)
}

func (s *CategoryService) UpdateSubcategory(ctx context.Context, id string, in SubcategoryInput) (*models.Subcategory, error) {
	subcategory, err := s.GetSubcategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validateSubcategory(ctx, in); err != nil {
		return nil, err
	}
	subcategory.Name = strings.TrimSpace(*in.Name)
	subcategory.CategoryID = *in.CategoryID
	subcategory.Category = nil
	if err := s.subcategories.Update(ctx, subcategory); err != nil {
		return nil, categoryWriteFailed("Subcategory", err)
	}
	return s.GetSubcategory(ctx, id)
}

// DeleteSubcategory removes the subcategory and detaches its products.
func (s *CategoryService) DeleteSubcategory(ctx context.Context, id string) error {
	if _, err := s.GetSubcategory(ctx, id); err != nil {
		return err
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.ClearSubcategory(ctx, id); err != nil {
			return err
		}
		return s.subcategories.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Subcategory")
		}
		return fmt.Errorf("failed to delete subcategory: %w", err)
	}
	return nil
}

// categoryWriteFailed maps a store error for resource ("Category" or
// "Subcategory") to its domain error.
func categoryWriteFailed(resource string, err error) error {
	if errors.Is(err, repositories.ErrDuplicate) {
		e := apperr.Duplicate("An entry with this name already exists.")
		e.Details = map[string]string{"name": "This name is already in use."}
		return e
	}
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound(resource)
	}
	return fmt.Errorf("failed to save %s: %w", strings.ToLower(resource), err)
}
