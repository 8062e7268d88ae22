// Package orders places orders from the cart and exposes order history,
// including the seller's paid-order work queue.
package orders

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
	"github.com/akenterprises/storefront/pkg/metrics"
)

// Statuses an order may be moved to.
var allowedStatuses = map[string]struct{}{
	"pending":   {},
	"paid":      {},
	"shipped":   {},
	"delivered": {},
	"cancelled": {},
}

// RemoteOrders is the slice of the backend the service needs.
type RemoteOrders interface {
	PlaceOrder(ctx context.Context, userID string, items []backend.OrderItemInput, total decimal.Decimal) (backend.Order, error)
	FetchUserOrders(ctx context.Context, userID string) ([]backend.Order, error)
	FetchOrder(ctx context.Context, orderID int) (backend.Order, error)
	FetchPaidOrders(ctx context.Context) ([]backend.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int, status string) error
}

// Cart is what order placement needs from the reconciliation engine.
type Cart interface {
	Current() cart.View
	RemoveLines(ctx context.Context, userID string, keys []cart.LineKey) (cart.View, error)
}

// ServiceParams carries Service dependencies.
type ServiceParams struct {
	Remote  RemoteOrders
	Cart    Cart
	Logger  *logger.Logger
	Metrics *metrics.SyncMetrics
}

type Service struct {
	remote  RemoteOrders
	cart    Cart
	log     *logger.Logger
	metrics *metrics.SyncMetrics
}

// NewService validates dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Remote == nil {
		return nil, errors.New(errors.CodeInternal, "orders service requires a remote orders client")
	}
	if params.Cart == nil {
		return nil, errors.New(errors.CodeInternal, "orders service requires a cart")
	}
	if params.Logger == nil {
		return nil, errors.New(errors.CodeInternal, "orders service requires a logger")
	}
	return &Service{
		remote:  params.Remote,
		cart:    params.Cart,
		log:     params.Logger,
		metrics: params.Metrics,
	}, nil
}

// PlaceFromCart submits the cart's selected lines as an order. On success
// the ordered lines are removed from the cart and the unchecked set;
// deselected lines stay behind untouched.
func (s *Service) PlaceFromCart(ctx context.Context, userID string) (backend.Order, error) {
	if userID == "" {
		return backend.Order{}, errors.New(errors.CodeUnauthorized, "placing an order requires a signed-in user")
	}

	view := s.cart.Current()
	items := make([]backend.OrderItemInput, 0, len(view.Lines))
	keys := make([]cart.LineKey, 0, len(view.Lines))
	for _, line := range view.Lines {
		if !line.Selected {
			continue
		}
		items = append(items, backend.OrderItemInput{
			ProductID: line.Key.ProductID,
			Quantity:  line.Quantity,
			Price:     line.EffectivePrice(),
			Size:      wireSize(line.Key),
		})
		keys = append(keys, line.Key)
	}
	if len(items) == 0 {
		return backend.Order{}, errors.New(errors.CodeValidation, "no selected items to order")
	}

	order, err := s.remote.PlaceOrder(ctx, userID, items, view.Totals.GrandTotal)
	if err != nil {
		s.metrics.IncSyncFailure("orders.place")
		return backend.Order{}, err
	}
	s.metrics.IncSyncSuccess("orders.place")

	if _, err := s.cart.RemoveLines(ctx, userID, keys); err != nil {
		// The order stands; the stale cart heals on the next load.
		s.log.Error(s.log.WithComponent(ctx, "orders"), "clearing ordered lines failed", err)
	}
	return order, nil
}

// History lists the user's orders.
func (s *Service) History(ctx context.Context, userID string) ([]backend.Order, error) {
	if userID == "" {
		return nil, errors.New(errors.CodeUnauthorized, "order history requires a signed-in user")
	}
	return s.remote.FetchUserOrders(ctx, userID)
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, orderID int) (backend.Order, error) {
	return s.remote.FetchOrder(ctx, orderID)
}

// SellerPaidOrders lists paid orders awaiting fulfillment.
func (s *Service) SellerPaidOrders(ctx context.Context) ([]backend.Order, error) {
	return s.remote.FetchPaidOrders(ctx)
}

// UpdateStatus moves an order through fulfillment. Unknown statuses are
// rejected before reaching the backend.
func (s *Service) UpdateStatus(ctx context.Context, orderID int, status string) error {
	if _, ok := allowedStatuses[status]; !ok {
		return errors.New(errors.CodeValidation, "unknown order status").WithDetails(status)
	}
	return s.remote.UpdateOrderStatus(ctx, orderID, status)
}

func wireSize(key cart.LineKey) string {
	if key.Size == cart.DefaultSize {
		return ""
	}
	return key.Size
}
