package orders

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akenterprises/storefront/internal/cart"
	"github.com/akenterprises/storefront/pkg/backend"
	"github.com/akenterprises/storefront/pkg/errors"
	"github.com/akenterprises/storefront/pkg/logger"
)

type fakeRemote struct {
	placed      []backend.OrderItemInput
	placedTotal decimal.Decimal
	placeErr    error
	statuses    map[int]string
}

func (f *fakeRemote) PlaceOrder(_ context.Context, _ string, items []backend.OrderItemInput, total decimal.Decimal) (backend.Order, error) {
	if f.placeErr != nil {
		return backend.Order{}, f.placeErr
	}
	f.placed = items
	f.placedTotal = total
	return backend.Order{OrderID: 42, Status: "pending"}, nil
}

func (f *fakeRemote) FetchUserOrders(context.Context, string) ([]backend.Order, error) {
	return []backend.Order{{OrderID: 42}}, nil
}

func (f *fakeRemote) FetchOrder(_ context.Context, id int) (backend.Order, error) {
	return backend.Order{OrderID: id}, nil
}

func (f *fakeRemote) FetchPaidOrders(context.Context) ([]backend.Order, error) {
	return []backend.Order{{OrderID: 7, Status: "paid"}}, nil
}

func (f *fakeRemote) UpdateOrderStatus(_ context.Context, id int, status string) error {
	if f.statuses == nil {
		f.statuses = map[int]string{}
	}
	f.statuses[id] = status
	return nil
}

type fakeCart struct {
	view    cart.View
	removed []cart.LineKey
}

func (f *fakeCart) Current() cart.View { return f.view }

func (f *fakeCart) RemoveLines(_ context.Context, _ string, keys []cart.LineKey) (cart.View, error) {
	f.removed = keys
	return cart.View{}, nil
}

func cartWithLines() cart.View {
	dp := decimal.NewFromInt(90)
	lines := []cart.Line{
		{Key: cart.NewLineKey(7, "M"), Price: decimal.NewFromInt(120), DiscountedPrice: &dp, Quantity: 2, Selected: true},
		{Key: cart.NewLineKey(9, ""), Price: decimal.NewFromInt(50), Quantity: 1, Selected: false},
	}
	return cart.View{
		Lines:  lines,
		Totals: cart.ComputeTotals(lines, nil, cart.PricingPolicy{PlatformFee: decimal.NewFromInt(23)}),
	}
}

func newService(t *testing.T, remote *fakeRemote, c *fakeCart) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Remote: remote,
		Cart:   c,
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc
}

func TestPlaceFromCartSubmitsSelectedLinesOnly(t *testing.T) {
	remote := &fakeRemote{}
	c := &fakeCart{view: cartWithLines()}
	svc := newService(t, remote, c)

	order, err := svc.PlaceFromCart(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, 42, order.OrderID)

	require.Len(t, remote.placed, 1)
	assert.Equal(t, 7, remote.placed[0].ProductID)
	assert.Equal(t, "M", remote.placed[0].Size)
	assert.True(t, remote.placed[0].Price.Equal(decimal.NewFromInt(90)))
	assert.True(t, remote.placedTotal.Equal(c.view.Totals.GrandTotal))

	require.Len(t, c.removed, 1, "only ordered lines leave the cart")
	assert.Equal(t, cart.NewLineKey(7, "M"), c.removed[0])
}

func TestPlaceFromCartRejectsEmptySelection(t *testing.T) {
	view := cartWithLines()
	view.Lines[0].Selected = false
	svc := newService(t, &fakeRemote{}, &fakeCart{view: view})

	_, err := svc.PlaceFromCart(context.Background(), "u-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestPlaceFromCartRequiresUser(t *testing.T) {
	svc := newService(t, &fakeRemote{}, &fakeCart{view: cartWithLines()})
	_, err := svc.PlaceFromCart(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnauthorized, errors.As(err).Code())
}

func TestPlaceFromCartKeepsCartOnRemoteFailure(t *testing.T) {
	remote := &fakeRemote{placeErr: assert.AnError}
	c := &fakeCart{view: cartWithLines()}
	svc := newService(t, remote, c)

	_, err := svc.PlaceFromCart(context.Background(), "u-1")
	require.Error(t, err)
	assert.Empty(t, c.removed)
}

func TestUpdateStatusWhitelist(t *testing.T) {
	remote := &fakeRemote{}
	svc := newService(t, remote, &fakeCart{})

	require.NoError(t, svc.UpdateStatus(context.Background(), 42, "shipped"))
	assert.Equal(t, "shipped", remote.statuses[42])

	err := svc.UpdateStatus(context.Background(), 42, "teleported")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestSellerPaidOrders(t *testing.T) {
	svc := newService(t, &fakeRemote{}, &fakeCart{})
	orders, err := svc.SellerPaidOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "paid", orders[0].Status)
}
