package locations

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a named physical place stock can sit in. It carries no
// quantity state of its own; balances live in the stock module.
type Location struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Longitude decimal.Decimal `json:"longitude"`
	Latitude  decimal.Decimal `json:"latitude"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
