package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"gorm.io/gorm"
)

// OrderQueryService is the read side used by the order history and tailor
// dashboard pages.
type OrderQueryService interface {
	ListBuyerOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	GetBuyerOrder(ctx context.Context, userID string, id uuid.UUID) (*models.Order, error)
	ListVendorOrders(ctx context.Context, vendorID string, page, limit int) ([]models.Order, int64, error)
}

type orderQueryServiceImpl struct {
	repo repository.OrderRepository
}

func NewOrderQueryService(repo repository.OrderRepository) OrderQueryService {
	return &orderQueryServiceImpl{repo: repo}
}

func (s *orderQueryServiceImpl) ListBuyerOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	orders, total, err := s.repo.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to fetch orders", err)
	}
	return orders, total, nil
}

func (s *orderQueryServiceImpl) GetBuyerOrder(ctx context.Context, userID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByIDAndUserID(ctx, id, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch order", err)
	}
	return order, nil
}

func (s *orderQueryServiceImpl) ListVendorOrders(ctx context.Context, vendorID string, page, limit int) ([]models.Order, int64, error) {
	orders, total, err := s.repo.FindByVendorID(ctx, vendorID, page, limit)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to fetch orders", err)
	}
	return orders, total, nil
}
