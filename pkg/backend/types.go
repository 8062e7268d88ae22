package backend

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// envelope is the wrapper every backend endpoint answers with.
type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Data       json.RawMessage  `json:"data"`
	TotalPrice *decimal.Decimal `json:"total_price"`
}

// CartItem is a cart line as the backend reports it. The backend has no
// notion of soft-deselection; a line it returns is a line it considers live.
type CartItem struct {
	ProductID       int              `json:"product_id"`
	ItemName        string           `json:"item_name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	DiscountPercent decimal.Decimal  `json:"discount_percent"`
	Quantity        int              `json:"quantity"`
	Size            string           `json:"size"`
}

// CartSnapshot is the result of fetching the authoritative cart. TotalPrice
// is the server-computed total and may be absent.
type CartSnapshot struct {
	Items      []CartItem
	TotalPrice *decimal.Decimal
}

// WishlistItem mirrors a backend wishlist row.
type WishlistItem struct {
	ProductID int             `json:"product_id"`
	ItemName  string          `json:"item_name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
}

// Menu is the catalog source: raw categories and items from the menu
// endpoint, joined client-side.
type Menu struct {
	Categories []MenuCategory `json:"categories"`
	Items      []MenuItem     `json:"items"`
}

type MenuCategory struct {
	CategoryID   int    `json:"category_id"`
	CategoryName string `json:"category_name"`
}

type MenuItem struct {
	ItemID          int              `json:"item_id"`
	ItemName        string           `json:"item_name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	DiscountPercent *decimal.Decimal `json:"discount_percent"`
	CategoryID      int              `json:"category_id"`
	Description     string           `json:"description"`
	Rating          *float64         `json:"rating"`
	RatingsCount    *int             `json:"ratings_count"`
	Sizes           []string         `json:"sizes"`
}

// OrderItemInput is a line submitted at order placement.
type OrderItemInput struct {
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size,omitempty"`
}

type OrderItem struct {
	OrderItemID     int              `json:"order_item_id"`
	ProductID       int              `json:"product_id"`
	ItemName        string           `json:"item_name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discounted_price"`
	Quantity        int              `json:"quantity"`
	Size            string           `json:"size"`
	TotalPrice      *decimal.Decimal `json:"total_price"`
}

type Order struct {
	OrderID     int              `json:"order_id"`
	UserID      string           `json:"user_id"`
	Status      string           `json:"status"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	CreatedAt   *time.Time       `json:"created_at"`
	Items       []OrderItem      `json:"items"`
}
