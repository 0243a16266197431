package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
	"gorm.io/gorm"
)

// orderReader serves reads from a fixed slice; writes are not used by the
// query service.
type orderReader struct {
	repository.OrderRepository
	orders []models.Order
	err    error
}

func (r *orderReader) FindByUserID(_ context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return r.filter(func(o models.Order) bool { return o.UserID == userID })
}

func (r *orderReader) FindByVendorID(_ context.Context, vendorID string, page, limit int) ([]models.Order, int64, error) {
	return r.filter(func(o models.Order) bool { return o.VendorID == vendorID })
}

func (r *orderReader) FindByIDAndUserID(_ context.Context, id uuid.UUID, userID string) (*models.Order, error) {
	if r.err != nil {
		return nil, r.err
	}
	for i := range r.orders {
		if r.orders[i].ID == id && r.orders[i].UserID == userID {
			return &r.orders[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *orderReader) filter(keep func(models.Order) bool) ([]models.Order, int64, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	var out []models.Order
	for _, o := range r.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func seededOrders() []models.Order {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return []models.Order{
		{ID: uuid.New(), UserID: "U1", VendorID: "V1", StripeSessionID: "cs_1", Status: models.OrderStatusPaid, PaidAt: &at},
		{ID: uuid.New(), UserID: "U1", VendorID: "V2", StripeSessionID: "cs_1", Status: models.OrderStatusPaid, PaidAt: &at},
		{ID: uuid.New(), UserID: "U2", VendorID: "V1", StripeSessionID: "cs_2", Status: models.OrderStatusAwaitingPayment},
	}
}

func TestOrderQueryService_Lists(t *testing.T) {
	svc := services.NewOrderQueryService(&orderReader{orders: seededOrders()})

	buyer, total, err := svc.ListBuyerOrders(context.Background(), "U1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, buyer, 2)

	vendor, total, err := svc.ListVendorOrders(context.Background(), "V1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, o := range vendor {
		assert.Equal(t, "V1", o.VendorID)
	}
}

func TestOrderQueryService_GetBuyerOrder(t *testing.T) {
	orders := seededOrders()
	svc := services.NewOrderQueryService(&orderReader{orders: orders})

	got, err := svc.GetBuyerOrder(context.Background(), "U1", orders[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "V1", got.VendorID)

	_, err = svc.GetBuyerOrder(context.Background(), "U1", orders[2].ID)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestOrderQueryService_StoreFailure(t *testing.T) {
	svc := services.NewOrderQueryService(&orderReader{err: errors.New("connection reset")})

	_, _, err := svc.ListBuyerOrders(context.Background(), "U1", 1, 10)
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	var appErr *apperrors.Error
	assert.ErrorAs(t, err, &appErr)

	_, err = svc.GetBuyerOrder(context.Background(), "U1", uuid.New())
	assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
}
