package repositories

import (
	"context"
	"fmt"

	"cardanocart/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) List(ctx context.Context, userID string) ([]models.Order, error) {
	query := conn(ctx, r.db).Preload("Items")
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, wrap("failed to list orders", err)
	}
	return orders, nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, wrap(fmt.Sprintf("failed to get order by ID %s", id), err)
	}
	return &order, nil
}

// Create inserts the order together with its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	return wrap("failed to create order", conn(ctx, r.db).Create(order).Error)
}

func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := conn(ctx, r.db).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return wrap("failed to update order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	return nil
}
