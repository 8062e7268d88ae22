package cart

import (
	"github.com/shopspring/decimal"

	"github.com/akenterprises/storefront/internal/catalog"
)

// DefaultSize is the sentinel used when a product has no size dimension.
const DefaultSize = "default"

// LineKey identifies a cart line. The same product in two sizes is two
// distinct lines; this composite is the join key across the local cache,
// the unchecked set and the remote cart.
type LineKey struct {
	ProductID int    `json:"productId"`
	Size      string `json:"size"`
}

// NewLineKey builds a key, normalizing an absent size to the sentinel.
func NewLineKey(productID int, size string) LineKey {
	if size == "" {
		size = DefaultSize
	}
	return LineKey{ProductID: productID, Size: size}
}

// Line is one cart entry: a product snapshot plus quantity and selection.
// Selected=false is a soft-deselect: the line stays visible locally but is
// represented remotely as quantity zero.
type Line struct {
	Key             LineKey          `json:"key"`
	Name            string           `json:"name"`
	Price           decimal.Decimal  `json:"price"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	DiscountPercent decimal.Decimal  `json:"discountPercent"`
	Image           string           `json:"image"`
	Quantity        int              `json:"quantity"`
	Selected        bool             `json:"selected"`
}

// EffectivePrice is what the buyer pays per unit.
func (l Line) EffectivePrice() decimal.Decimal {
	if l.DiscountedPrice != nil && l.DiscountedPrice.IsPositive() {
		return *l.DiscountedPrice
	}
	return l.Price
}

// newLine snapshots a catalog product into a selected cart line.
func newLine(p catalog.Product, size string, quantity int) Line {
	return Line{
		Key:             NewLineKey(p.ID, size),
		Name:            p.Name,
		Price:           p.Price,
		DiscountedPrice: p.DiscountedPrice,
		DiscountPercent: p.DiscountPercent,
		Image:           p.Image,
		Quantity:        quantity,
		Selected:        true,
	}
}

// View is the merged cart handed to callers. Warning carries a non-fatal
// sync problem; the lines themselves are always the best local answer.
type View struct {
	Lines   []Line `json:"lines"`
	Totals  Totals `json:"totals"`
	Warning string `json:"warning,omitempty"`
}
