package services_test

import (
	"context"
	"testing"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/repositories"
	"cardanocart/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type catalogFixture struct {
	db         *gorm.DB
	blobs      *memBlobs
	events     *MockPublisher
	products   *services.ProductService
	categories *services.CategoryService
	reviews    *services.ReviewService
	orders     *services.OrderService
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	db := newTestDB(t)
	blobs := newMemBlobs()
	events := new(MockPublisher)
	events.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()

	products := repositories.NewGORMProductRepository(db)
	categories := repositories.NewGORMCategoryRepository(db)
	subcategories := repositories.NewGORMSubcategoryRepository(db)
	reviews := repositories.NewGORMReviewRepository(db)
	tx := repositories.NewGORMTxManager(db)

	return &catalogFixture{
		db:         db,
		blobs:      blobs,
		events:     events,
		products:   services.NewProductService(products, subcategories, reviews, tx, blobs, events),
		categories: services.NewCategoryService(categories, subcategories, products, tx),
		reviews:    services.NewReviewService(reviews, products),
		orders:     services.NewOrderService(repositories.NewGORMOrderRepository(db), products, tx, events),
	}
}

func productInput(name, price string) services.ProductInput {
	p := decimal.RequireFromString(price)
	return services.ProductInput{
		Name:        strPtr(name),
		Description: strPtr(name + " description"),
		Price:       &p,
		Stock:       10,
	}
}

func upload(name string) services.ImageUpload {
	return services.ImageUpload{Filename: name, ContentType: "image/png", Data: []byte(name)}
}

// uploadedNames maps each image back to the upload it was stored from;
// upload() uses the filename as the file content.
func (f *catalogFixture) uploadedNames(images []models.ProductImage) []string {
	f.blobs.mu.Lock()
	defer f.blobs.mu.Unlock()
	names := make([]string, 0, len(images))
	for _, img := range images {
		names = append(names, string(f.blobs.objects[img.Image]))
	}
	return names
}

func (f *catalogFixture) seedProduct(t *testing.T, seller *models.User, name, price string) *models.Product {
	t.Helper()
	product, err := f.products.Create(context.Background(), actorFor(seller), productInput(name, price), nil)
	require.NoError(t, err)
	return product
}

func TestProductService_CreateWithImages(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)

	category, err := f.categories.CreateCategory(ctx, strPtr("Electronics"))
	require.NoError(t, err)
	sub, err := f.categories.CreateSubcategory(ctx, services.SubcategoryInput{Name: strPtr("Phones"), CategoryID: &category.ID})
	require.NoError(t, err)

	in := productInput("Phone", "199.99")
	in.SKU = strPtr("PH-1")
	in.SubcategoryID = &sub.ID
	in.Specifications = models.JSONMap{"color": "black"}

	product, err := f.products.Create(ctx, actorFor(seller), in, []services.ImageUpload{upload("a.png"), upload("b.png")})
	require.NoError(t, err)

	assert.Equal(t, seller.ID, product.SellerID)
	assert.True(t, decimal.RequireFromString("199.99").Equal(product.Price))
	require.NotNil(t, product.CategoryName)
	assert.Equal(t, "Electronics", *product.CategoryName)
	assert.Equal(t, "black", product.Specifications["color"])
	assert.Equal(t, []string{"a.png", "b.png"}, f.uploadedNames(product.Images))
	stored, err := f.products.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png"}, f.uploadedNames(stored.Images))
	assert.Equal(t, "mem://"+product.Images[0].Image, product.Images[0].URL)
	f.events.AssertCalled(t, "Publish", "product.created", mock.Anything)
}

func TestProductService_CreateValidation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)

	_, err := f.products.Create(ctx, actorFor(seller), services.ProductInput{Name: strPtr("x")}, nil)
	assertKind(t, err, apperr.KindValidation)
	e, _ := apperr.As(err)
	assert.Equal(t, map[string]string{"missing_fields": "Missing required fields: description, price"}, e.Details)

	in := productInput("Bad", "-1")
	_, err = f.products.Create(ctx, actorFor(seller), in, nil)
	assertKind(t, err, apperr.KindValidation)

	in = productInput("Orphan", "1")
	in.SubcategoryID = strPtr("nope")
	_, err = f.products.Create(ctx, actorFor(seller), in, nil)
	assertKind(t, err, apperr.KindInvalidReference)

	in = productInput("Anon", "1")
	_, err = f.products.Create(ctx, actorFor(&models.User{}), in, nil)
	assertKind(t, err, apperr.KindPermissionDenied)
}

func TestProductService_CreateRollsBackOnUploadFailure(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)
	f.blobs.failOn = 2

	_, err := f.products.Create(ctx, actorFor(seller), productInput("Phone", "10"), []services.ImageUpload{upload("a.png"), upload("b.png")})
	require.Error(t, err)

	page, err := f.products.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Len(t, f.blobs.deleted, 1)
	assert.Empty(t, f.blobs.objects)
}

func TestProductService_DuplicateSKU(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)

	in := productInput("One", "1")
	in.SKU = strPtr("SKU-1")
	_, err := f.products.Create(ctx, actorFor(seller), in, nil)
	require.NoError(t, err)

	in = productInput("Two", "2")
	in.SKU = strPtr("SKU-1")
	_, err = f.products.Create(ctx, actorFor(seller), in, []services.ImageUpload{upload("c.png")})
	assertKind(t, err, apperr.KindDuplicate)
	assert.Empty(t, f.blobs.objects)

	// Blank SKUs never collide
	for _, name := range []string{"Three", "Four"} {
		in = productInput(name, "3")
		in.SKU = strPtr(" ")
		_, err = f.products.Create(ctx, actorFor(seller), in, nil)
		require.NoError(t, err)
	}
}

func TestProductService_UpdateReplacesFields(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)
	other := seedUser(t, f.db, "other", models.RoleSeller)
	admin := seedUser(t, f.db, "root", models.RoleAdmin)

	in := productInput("Phone", "10")
	in.SKU = strPtr("PH-1")
	product, err := f.products.Create(ctx, actorFor(seller), in, []services.ImageUpload{upload("a.png")})
	require.NoError(t, err)

	_, err = f.products.Update(ctx, actorFor(other), product.ID, productInput("Stolen", "1"), nil)
	assertKind(t, err, apperr.KindPermissionDenied)

	_, err = f.products.Update(ctx, actorFor(other), "missing", productInput("Stolen", "1"), nil)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.products.Update(ctx, actorFor(seller), product.ID, services.ProductInput{Name: strPtr("Half")}, nil)
	assertKind(t, err, apperr.KindValidation)

	// Omitted optional fields are reset, images are kept without uploads
	updated, err := f.products.Update(ctx, actorFor(seller), product.ID, productInput("Phone 2", "12.50"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Phone 2", updated.Name)
	assert.Nil(t, updated.SKU)
	assert.Equal(t, seller.ID, updated.SellerID)
	assert.Equal(t, []string{"a.png"}, f.uploadedNames(updated.Images))

	// An admin may replace images
	updated, err = f.products.Update(ctx, actorFor(admin), product.ID, productInput("Phone 3", "13"), []services.ImageUpload{upload("x.png"), upload("y.png")})
	require.NoError(t, err)
	assert.Equal(t, seller.ID, updated.SellerID)
	assert.Equal(t, []string{"x.png", "y.png"}, f.uploadedNames(updated.Images))
	stored, err := f.products.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"x.png", "y.png"}, f.uploadedNames(stored.Images))
	for _, img := range stored.Images {
		assert.NotEqual(t, product.Images[0].Image, img.Image)
	}
}

func TestProductService_ListPaging(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)
	for _, name := range []string{"A", "B", "C"} {
		f.seedProduct(t, seller, name, "1")
	}

	page, err := f.products.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 3)
	assert.Zero(t, page.Limit)

	page, err = f.products.List(ctx, repositories.ProductFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Len(t, page.Items, 1)
}

func TestProductService_DeleteCascadesReviews(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	seller := seedUser(t, f.db, "seller", models.RoleSeller)
	buyer := seedUser(t, f.db, "buyer", models.RoleCustomer)
	product := f.seedProduct(t, seller, "Phone", "10")

	review, err := f.reviews.Create(ctx, actorFor(buyer), product.ID, services.ReviewInput{Rating: intPtr(4)})
	require.NoError(t, err)

	err = f.products.Delete(ctx, actorFor(buyer), product.ID)
	assertKind(t, err, apperr.KindPermissionDenied)

	require.NoError(t, f.products.Delete(ctx, actorFor(seller), product.ID))

	_, err = f.products.Get(ctx, product.ID)
	assertKind(t, err, apperr.KindNotFound)
	_, err = f.reviews.Get(ctx, product.ID, review.ID)
	assertKind(t, err, apperr.KindNotFound)
	f.events.AssertCalled(t, "Publish", "product.deleted", mock.Anything)
}
