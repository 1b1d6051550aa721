package repositories_test

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"cardanocart/internal/config"
	"cardanocart/internal/database"
	"cardanocart/internal/models"
	"cardanocart/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logrus.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func strPtr(s string) *string { return &s }

func TestUserRepository_UniqueIdentity(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "alice", Email: "alice@example.com", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	err := repo.Create(ctx, &models.User{Username: "alice", Email: "other@example.com", Role: models.RoleCustomer})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	exists, err := repo.ExistsByEmailOrUsername(ctx, "nobody@example.com", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUserRepository_ListSkipsDeleted(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMUserRepository(db)
	ctx := context.Background()

	kept := &models.User{Username: "kept", Email: "kept@example.com", Role: models.RoleCustomer, IsActive: true}
	gone := &models.User{Username: "gone", Email: "gone@example.com", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, repo.Create(ctx, kept))
	require.NoError(t, repo.Create(ctx, gone))

	gone.IsDeleted = true
	require.NoError(t, repo.Update(ctx, gone))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "kept", users[0].Username)
}

func TestTxManager_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	tx := repositories.NewGORMTxManager(db)
	repo := repositories.NewGORMUserRepository(db)
	ctx := context.Background()

	boom := errors.New("boom")
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := repo.Create(ctx, &models.User{Username: "bob", Email: "bob@example.com", Role: models.RoleCustomer}); err != nil {
			return err
		}
		return tx.RunInTx(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestTokenRepository_BlacklistOnce(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMTokenRepository(db)
	ctx := context.Background()

	token := &models.BlacklistedToken{JTI: "jti-1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Blacklist(ctx, token))

	again := &models.BlacklistedToken{JTI: "jti-1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, repo.Blacklist(ctx, again), repositories.ErrDuplicate)

	listed, err := repo.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, listed)

	require.NoError(t, repo.Blacklist(ctx, &models.BlacklistedToken{JTI: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Hour)}))
	purged, err := repo.PurgeExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestProductRepository_ImagesKeepOrder(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	product := &models.Product{Name: "Lamp", Description: "Desk lamp", Price: decimal.RequireFromString("19.99"), SellerID: "seller"}
	require.NoError(t, repo.Create(ctx, product))

	images := []models.ProductImage{{Image: "a.png"}, {Image: "b.png"}, {Image: "c.png"}}
	require.NoError(t, repo.AddImages(ctx, product, images))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 3)
	assert.Equal(t, "a.png", got.Images[0].Image)
	assert.Equal(t, "c.png", got.Images[2].Image)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("19.99")))

	require.NoError(t, repo.ReplaceImages(ctx, got, []models.ProductImage{{Image: "z.png"}}))
	got, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, got.Images, 1)
	assert.Equal(t, "z.png", got.Images[0].Image)
}

func TestProductRepository_UpdateOverwritesNulls(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	product := &models.Product{
		Name: "Lamp", Description: "Desk lamp", Price: decimal.NewFromInt(10), Stock: 3,
		SKU: strPtr("LAMP-1"), Specifications: models.JSONMap{"watts": 40.0}, SellerID: "seller",
	}
	require.NoError(t, repo.Create(ctx, product))

	update := &models.Product{ID: product.ID, Name: "Lamp", Description: "", Price: decimal.NewFromInt(0), SellerID: "intruder"}
	require.NoError(t, repo.Update(ctx, update))

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, got.SKU)
	assert.Nil(t, got.Specifications)
	assert.Equal(t, 0, got.Stock)
	assert.Equal(t, "seller", got.SellerID)

	assert.ErrorIs(t, repo.Update(ctx, &models.Product{ID: "missing", Name: "x"}), repositories.ErrNotFound)
}

func TestProductRepository_ListFilterAndPage(t *testing.T) {
	db := newTestDB(t)
	products := repositories.NewGORMProductRepository(db)
	categories := repositories.NewGORMCategoryRepository(db)
	subcategories := repositories.NewGORMSubcategoryRepository(db)
	ctx := context.Background()

	category := &models.Category{Name: "Electronics"}
	require.NoError(t, categories.Create(ctx, category))
	sub := &models.Subcategory{Name: "Laptops", CategoryID: category.ID}
	require.NoError(t, subcategories.Create(ctx, sub))

	for i, name := range []string{"A", "B", "C"} {
		p := &models.Product{Name: name, Price: decimal.NewFromInt(int64(i)), SellerID: "s"}
		if name != "C" {
			p.SubcategoryID = &sub.ID
		}
		require.NoError(t, products.Create(ctx, p))
	}

	all, total, err := products.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), total)

	filtered, total, err := products.List(ctx, repositories.ProductFilter{SubcategoryID: sub.ID, Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, filtered, 1)
	require.NotNil(t, filtered[0].CategoryName)
	assert.Equal(t, "Electronics", *filtered[0].CategoryName)

	require.NoError(t, products.ClearSubcategory(ctx, sub.ID))
	filtered, total, err = products.List(ctx, repositories.ProductFilter{SubcategoryID: sub.ID})
	require.NoError(t, err)
	assert.Empty(t, filtered)
	assert.Zero(t, total)
}

func TestProductRepository_AdjustStock(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	product := &models.Product{Name: "Pen", Price: decimal.NewFromInt(1), Stock: 2, SellerID: "s"}
	require.NoError(t, repo.Create(ctx, product))

	require.NoError(t, repo.AdjustStock(ctx, product.ID, -2))
	assert.ErrorIs(t, repo.AdjustStock(ctx, product.ID, -1), repositories.ErrInsufficientStock)

	got, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestProductRepository_DeleteUnlinksImages(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMProductRepository(db)
	ctx := context.Background()

	product := &models.Product{Name: "Mug", Price: decimal.NewFromInt(5), SellerID: "s"}
	require.NoError(t, repo.Create(ctx, product))
	require.NoError(t, repo.AddImages(ctx, product, []models.ProductImage{{Image: "mug.png"}}))

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err := repo.GetByID(ctx, product.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	var links int64
	require.NoError(t, db.Table("product_image_links").Count(&links).Error)
	assert.Zero(t, links)

	assert.ErrorIs(t, repo.Delete(ctx, product.ID), repositories.ErrNotFound)
}

func TestReviewRepository_ScopedToProduct(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMReviewRepository(db)
	ctx := context.Background()

	review := &models.Review{ProductID: "p1", UserID: "u1", Rating: 4}
	require.NoError(t, repo.Create(ctx, review))

	_, err := repo.GetForProduct(ctx, "p2", review.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	got, err := repo.GetForProduct(ctx, "p1", review.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)

	require.NoError(t, repo.DeleteByProduct(ctx, "p1"))
	reviews, err := repo.ListByProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestOrderRepository_CreateWithItems(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewGORMOrderRepository(db)
	ctx := context.Background()

	order := &models.Order{
		UserID:      "buyer",
		Status:      models.OrderStatusPending,
		TotalAmount: decimal.NewFromInt(30),
		Items:       []models.OrderItem{{ProductID: "p1", Quantity: 3, Price: decimal.NewFromInt(10)}},
	}
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 3, got.Items[0].Quantity)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, models.OrderStatusShipped))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", models.OrderStatusShipped), repositories.ErrNotFound)

	mine, err := repo.List(ctx, "buyer")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	others, err := repo.List(ctx, "someone-else")
	require.NoError(t, err)
	assert.Empty(t, others)
}
