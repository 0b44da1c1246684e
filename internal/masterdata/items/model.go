package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item represents a stock-keeping unit. The SKU is immutable once assigned;
// descriptive fields may be edited at any time.
type Item struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id,omitempty"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
