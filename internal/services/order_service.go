package services

import (
	"context"
	"errors"
	"fmt"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/policy"
	"cardanocart/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OrderService handles business logic related to orders.
type OrderService struct {
	orders   repositories.OrderRepository
	products repositories.ProductRepository
	tx       repositories.TxManager
	events   EventPublisher
}

// NewOrderService creates a new OrderService. events may be nil.
func NewOrderService(
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	tx repositories.TxManager,
	events EventPublisher,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		tx:       tx,
		events:   events,
	}
}

// OrderItemInput is one requested line of an order.
type OrderItemInput struct {
	ProductID string
	Quantity  int
}

// List returns every order to an admin and the caller's own orders otherwise.
func (s *OrderService) List(ctx context.Context, actor policy.Actor) ([]models.Order, error) {
	owner := actor.ID
	if actor.IsAdmin() {
		owner = ""
	}
	orders, err := s.orders.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Get returns an order to its buyer or an admin.
func (s *OrderService) Get(ctx context.Context, actor policy.Actor, id string) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, order) {
		return nil, apperr.PermissionDenied()
	}
	return order, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Order")
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// Create reserves stock for every item and saves a pending order at the
// current prices, all or nothing.
func (s *OrderService) Create(ctx context.Context, buyer policy.Actor, items []OrderItemInput) (*models.Order, error) {
	if !buyer.IsAuthenticated() {
		return nil, apperr.PermissionDenied()
	}
	if len(items) == 0 {
		return nil, apperr.Validation("An order needs at least one item.", map[string]string{
			"items": "This list may not be empty.",
		})
	}
	for i, item := range items {
		if item.ProductID == "" {
			return nil, apperr.Missing(fmt.Sprintf("items[%d].product_id", i))
		}
		if item.Quantity < 1 {
			return nil, apperr.Validation("Invalid order item", map[string]string{
				fmt.Sprintf("items[%d].quantity", i): "Ensure this value is greater than or equal to 1.",
			})
		}
	}

	order := &models.Order{UserID: buyer.ID, Status: models.OrderStatusPending}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		total := decimal.Zero
		lines := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			product, err := s.products.GetByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return apperr.InvalidReference("product_id", fmt.Sprintf("Product %s does not exist.", item.ProductID))
				}
				return err
			}
			if err := s.products.AdjustStock(ctx, product.ID, -item.Quantity); err != nil {
				if errors.Is(err, repositories.ErrInsufficientStock) {
					return apperr.Validation("insufficient stock", map[string]string{
						"product_id": product.ID,
					})
				}
				return err
			}
			lines = append(lines, models.OrderItem{
				ProductID: product.ID,
				Quantity:  item.Quantity,
				Price:     product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		order.Items = lines
		order.TotalAmount = total
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	logrus.WithFields(logrus.Fields{"order_id": order.ID, "user_id": buyer.ID, "total": order.TotalAmount.String()}).Info("Order created")
	publishEvent(s.events, "order.created", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
		"total":    order.TotalAmount.String(),
		"items":    len(order.Items),
	})
	return order, nil
}

// UpdateStatus moves an order to status. Admin only. Cancelling returns
// the reserved stock; a cancelled order is final.
func (s *OrderService) UpdateStatus(ctx context.Context, actor policy.Actor, id string, status models.OrderStatus) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperr.PermissionDenied()
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid order status", map[string]string{
			"status": fmt.Sprintf("%q is not a valid choice.", status),
		})
	}

	var previous models.OrderStatus
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		previous = order.Status
		if previous == status {
			return nil
		}
		if previous == models.OrderStatusCancelled {
			return apperr.Validation("Cancelled orders cannot change status.", map[string]string{
				"status": string(status),
			})
		}
		if status == models.OrderStatusCancelled {
			for _, item := range order.Items {
				if err := s.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil && !errors.Is(err, repositories.ErrInsufficientStock) {
					return err
				}
			}
		}
		return s.orders.UpdateStatus(ctx, id, status)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("Order")
		}
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}

	if previous != status {
		publishEvent(s.events, "order.status_changed", map[string]interface{}{
			"order_id": id,
			"from":     previous,
			"to":       status,
		})
	}
	return s.load(ctx, id)
}
