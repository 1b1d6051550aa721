package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/policy"
	"cardanocart/internal/repositories"
	"cardanocart/pkg/storage"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ProductService handles business logic related to products.
type ProductService struct {
	products      repositories.ProductRepository
	subcategories repositories.SubcategoryRepository
	reviews       repositories.ReviewRepository
	tx            repositories.TxManager
	blobs         storage.Store
	events        EventPublisher
}

// NewProductService creates a new ProductService. blobs and events may be nil.
func NewProductService(
	products repositories.ProductRepository,
	subcategories repositories.SubcategoryRepository,
	reviews repositories.ReviewRepository,
	tx repositories.TxManager,
	blobs storage.Store,
	events EventPublisher,
) *ProductService {
	return &ProductService{
		products:      products,
		subcategories: subcategories,
		reviews:       reviews,
		tx:            tx,
		blobs:         blobs,
		events:        events,
	}
}

// ProductInput is the full set of writable product fields. Name, Price and
// Description are required; the rest default to zero or NULL.
type ProductInput struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	Stock          int
	SKU            *string
	Specifications models.JSONMap
	SubcategoryID  *string
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Items []models.Product `json:"results"`
	Total int64            `json:"count"`
	Page  int              `json:"page,omitempty"`
	Limit int              `json:"limit,omitempty"`
}

func (s *ProductService) List(ctx context.Context, filter repositories.ProductFilter) (*ProductPage, error) {
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	page := &ProductPage{Items: products, Total: total}
	if filter.Limit > 0 {
		page.Page = filter.Page
		if page.Page < 1 {
			page.Page = 1
		}
		page.Limit = filter.Limit
	}
	return page, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Product")
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

// validate runs presence checks, then format checks, then resolves the
// subcategory reference. It normalizes a blank SKU or subcategory to nil.
func (s *ProductService) validate(ctx context.Context, in *ProductInput) error {
	var missing []string
	if in.Name == nil {
		missing = append(missing, "name")
	}
	if in.Price == nil {
		missing = append(missing, "price")
	}
	if in.Description == nil {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return apperr.Missing(missing...)
	}

	details := map[string]string{}
	if strings.TrimSpace(*in.Name) == "" {
		details["name"] = "This field may not be blank."
	}
	if in.Price.IsNegative() {
		details["price"] = "Ensure this value is greater than or equal to 0."
	}
	if in.Stock < 0 {
		details["stock"] = "Ensure this value is greater than or equal to 0."
	}
	if len(details) > 0 {
		return apperr.Validation("Invalid product data", details)
	}

	if blank(in.SKU) {
		in.SKU = nil
	}
	if blank(in.SubcategoryID) {
		in.SubcategoryID = nil
		return nil
	}
	if _, err := s.subcategories.GetByID(ctx, *in.SubcategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.InvalidReference("subcategory_id", "Subcategory does not exist.")
		}
		return fmt.Errorf("failed to resolve subcategory: %w", err)
	}
	return nil
}

func (in ProductInput) applyTo(p *models.Product) {
	p.Name = strings.TrimSpace(*in.Name)
	p.Description = *in.Description
	p.Price = *in.Price
	p.Stock = in.Stock
	p.SKU = in.SKU
	p.Specifications = in.Specifications
	p.SubcategoryID = in.SubcategoryID
}

// storeImages writes uploads to the blob store in order and returns the
// image rows to link.
func (s *ProductService) storeImages(ctx context.Context, uploads []ImageUpload, stored *[]string) ([]models.ProductImage, error) {
	keys, urls, err := storeUploads(ctx, s.blobs, "products", uploads, stored)
	if err != nil {
		return nil, err
	}
	images := make([]models.ProductImage, len(keys))
	for i := range keys {
		images[i] = models.ProductImage{Image: keys[i], URL: urls[i]}
	}
	return images, nil
}

func errDuplicateSKU() *apperr.Error {
	e := apperr.Duplicate("A product with this SKU already exists.")
	e.Details = map[string]string{"sku": "product with this sku already exists."}
	return e
}

// writeFailed maps a failed write and discards blobs stored before it.
func (s *ProductService) writeFailed(op string, err error, stored []string) error {
	discardBlobs(s.blobs, stored)
	if errors.Is(err, repositories.ErrDuplicate) {
		return errDuplicateSKU()
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

// Create stores the product owned by seller with its images, all or nothing.
func (s *ProductService) Create(ctx context.Context, seller policy.Actor, in ProductInput, uploads []ImageUpload) (*models.Product, error) {
	if !seller.IsAuthenticated() {
		return nil, apperr.PermissionDenied()
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}

	product := &models.Product{SellerID: seller.ID}
	in.applyTo(product)

	var stored []string
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.Create(ctx, product); err != nil {
			return err
		}
		images, err := s.storeImages(ctx, uploads, &stored)
		if err != nil {
			return err
		}
		return s.products.AddImages(ctx, product, images)
	})
	if err != nil {
		return nil, s.writeFailed("create", err, stored)
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "seller_id": seller.ID, "images": len(uploads)}).Info("Product created")
	publishEvent(s.events, "product.created", map[string]interface{}{
		"product_id": product.ID,
		"seller_id":  product.SellerID,
		"name":       product.Name,
		"price":      product.Price.String(),
	})
	return s.Get(ctx, product.ID)
}

// Update replaces every writable field of the product. Images are replaced
// only when uploads is non-empty. The seller never changes.
// Authorize checks that the product exists and that actor may change it.
// Handlers call it before reading the request body.
func (s *ProductService) Authorize(ctx context.Context, actor policy.Actor, id string) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, product) {
		return apperr.PermissionDenied()
	}
	return nil
}

func (s *ProductService) Update(ctx context.Context, actor policy.Actor, id string, in ProductInput, uploads []ImageUpload) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, product) {
		return nil, apperr.PermissionDenied()
	}
	if err := s.validate(ctx, &in); err != nil {
		return nil, err
	}
	in.applyTo(product)

	var stored []string
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.products.Update(ctx, product); err != nil {
			return err
		}
		if len(uploads) == 0 {
			return nil
		}
		images, err := s.storeImages(ctx, uploads, &stored)
		if err != nil {
			return err
		}
		return s.products.ReplaceImages(ctx, product, images)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			discardBlobs(s.blobs, stored)
			return nil, apperr.NotFound("Product")
		}
		return nil, s.writeFailed("update", err, stored)
	}

	logrus.WithFields(logrus.Fields{"product_id": product.ID, "actor_id": actor.ID}).Info("Product updated")
	return s.Get(ctx, product.ID)
}

// Delete removes the product together with its reviews and image links.
func (s *ProductService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	product, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, product) {
		return apperr.PermissionDenied()
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.reviews.DeleteByProduct(ctx, id); err != nil {
			return err
		}
		return s.products.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("Product")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	logrus.WithFields(logrus.Fields{"product_id": id, "actor_id": actor.ID}).Info("Product deleted")
	publishEvent(s.events, "product.deleted", map[string]interface{}{"product_id": id})
	return nil
}
