package repositories

import (
	"context"

	"cardanocart/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	// List returns the orders of userID, or every order when userID is empty.
	List(ctx context.Context, userID string) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
}
