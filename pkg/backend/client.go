// Package backend is the HTTP client for the storefront backend API. Every
// call carries a context, unwraps the common response envelope and maps
// failures to coded errors so callers can distinguish dependency outages
// from bad requests.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/akenterprises/storefront/pkg/config"
	"github.com/akenterprises/storefront/pkg/errors"
)

// Client talks to the storefront backend.
type Client struct {
	http *resty.Client
}

// NewClient builds a Client from config. The backend base URL is required
// at config load so it is trusted here.
func NewClient(cfg config.BackendConfig) *Client {
	rc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent).
		SetDebug(cfg.Debug)

	return &Client{http: rc}
}

// call performs a request and decodes the shared envelope. A transport
// failure or a non-2xx status becomes a dependency error; an envelope with
// success=false carries the backend's message.
func (c *Client) call(ctx context.Context, method, path string, body any) (*envelope, error) {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, fmt.Sprintf("backend %s %s failed", method, path))
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("backend %s %s: not found", method, path))
	}
	if resp.IsError() {
		return nil, errors.New(errors.CodeDependency,
			fmt.Sprintf("backend %s %s: status %d", method, path, resp.StatusCode()))
	}

	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, fmt.Sprintf("backend %s %s: bad response body", method, path))
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = "backend reported failure"
		}
		return nil, errors.New(errors.CodeDependency, msg)
	}
	return &env, nil
}

func decodeData[T any](env *envelope, what string) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, errors.Wrap(errors.CodeDependency, err, "decoding "+what)
	}
	return out, nil
}

// FetchCart returns the backend's view of a user's cart.
func (c *Client) FetchCart(ctx context.Context, userID string) (CartSnapshot, error) {
	env, err := c.call(ctx, http.MethodGet, "/cart/"+userID, nil)
	if err != nil {
		// A user with no cart yet is an empty cart, not an outage.
		if errors.As(err).Code() == errors.CodeNotFound {
			return CartSnapshot{}, nil
		}
		return CartSnapshot{}, err
	}
	items, err := decodeData[[]CartItem](env, "cart items")
	if err != nil {
		return CartSnapshot{}, err
	}
	return CartSnapshot{Items: items, TotalPrice: env.TotalPrice}, nil
}

type upsertCartItemRequest struct {
	UserID    string          `json:"user_id"`
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
}

// UpsertCartItem creates or updates a cart line on the backend. Quantity
// zero deletes the line.
func (c *Client) UpsertCartItem(ctx context.Context, userID string, productID, quantity int, price decimal.Decimal, size string) error {
	body := upsertCartItemRequest{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Size:      size,
	}
	_, err := c.call(ctx, http.MethodPost, "/cart/item", body)
	return err
}

// RemoveCartItem deletes a cart line. The wire form is an upsert with
// quantity zero; price still has to be present so it is echoed back.
func (c *Client) RemoveCartItem(ctx context.Context, userID string, productID int, price decimal.Decimal, size string) error {
	return c.UpsertCartItem(ctx, userID, productID, 0, price, size)
}

// FetchWishlist returns a user's wishlist rows.
func (c *Client) FetchWishlist(ctx context.Context, userID string) ([]WishlistItem, error) {
	env, err := c.call(ctx, http.MethodGet, "/wishlist/"+userID, nil)
	if err != nil {
		if errors.As(err).Code() == errors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeData[[]WishlistItem](env, "wishlist items")
}

type wishlistItemRequest struct {
	UserID    string `json:"user_id"`
	ProductID int    `json:"product_id"`
}

// AddWishlistItem adds a product to a user's wishlist.
func (c *Client) AddWishlistItem(ctx context.Context, userID string, productID int) error {
	_, err := c.call(ctx, http.MethodPost, "/wishlist/add", wishlistItemRequest{UserID: userID, ProductID: productID})
	return err
}

// RemoveWishlistItem removes a product from a user's wishlist. The backend
// takes the identifiers in the request body, not the path.
func (c *Client) RemoveWishlistItem(ctx context.Context, userID string, productID int) error {
	_, err := c.call(ctx, http.MethodDelete, "/wishlist/remove", wishlistItemRequest{UserID: userID, ProductID: productID})
	return err
}

// FetchMenu returns the raw catalog: categories plus items.
func (c *Client) FetchMenu(ctx context.Context) (Menu, error) {
	env, err := c.call(ctx, http.MethodGet, "/menu/categories-items", nil)
	if err != nil {
		return Menu{}, err
	}
	return decodeData[Menu](env, "menu")
}

type placeOrderRequest struct {
	Items       []OrderItemInput `json:"items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// PlaceOrder submits an order for a user and returns the created order.
func (c *Client) PlaceOrder(ctx context.Context, userID string, items []OrderItemInput, total decimal.Decimal) (Order, error) {
	env, err := c.call(ctx, http.MethodPost, "/orders/"+userID, placeOrderRequest{Items: items, TotalAmount: total})
	if err != nil {
		return Order{}, err
	}
	return decodeData[Order](env, "order")
}

// FetchUserOrders lists a user's orders, newest first per the backend.
func (c *Client) FetchUserOrders(ctx context.Context, userID string) ([]Order, error) {
	env, err := c.call(ctx, http.MethodGet, "/orders/user/"+userID, nil)
	if err != nil {
		if errors.As(err).Code() == errors.CodeNotFound {
			return nil, nil
		}
		return nil, err
	}
	return decodeData[[]Order](env, "orders")
}

// FetchOrder returns a single order by id.
func (c *Client) FetchOrder(ctx context.Context, orderID int) (Order, error) {
	env, err := c.call(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), nil)
	if err != nil {
		return Order{}, err
	}
	return decodeData[Order](env, "order")
}

// FetchPaidOrders lists paid orders across users, the seller's work queue.
func (c *Client) FetchPaidOrders(ctx context.Context) ([]Order, error) {
	env, err := c.call(ctx, http.MethodGet, "/orders/status/paid", nil)
	if err != nil {
		return nil, err
	}
	return decodeData[[]Order](env, "orders")
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// UpdateOrderStatus moves an order to a new status.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int, status string) error {
	_, err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d/status", orderID), updateOrderStatusRequest{Status: status})
	return err
}
