package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLineQuantity is the largest quantity a single cart line may hold.
const MaxLineQuantity = 1000

// ErrQuantityOutOfRange is returned for negative quantities and for lines that
// would exceed MaxLineQuantity.
var ErrQuantityOutOfRange = errors.New("quantity out of range")

// CartLine is a single catalog item in a cart. Name and unit price are frozen
// when the line is first added.
type CartLine struct {
	ItemID    string          `json:"id" validate:"required"`
	Name      string          `json:"name"`
	Option    string          `json:"option,omitempty"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity" validate:"gte=0,lte=1000"`
}

// Qty returns the effective quantity; absent or non-positive quantities count as one.
func (l CartLine) Qty() int {
	if l.Quantity <= 0 {
		return 1
	}
	return l.Quantity
}

// Subtotal is the displayed line amount in major currency units.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Qty())))
}

// CartLines is a list of cart lines stored as a JSON column.
type CartLines []CartLine

// Value implements driver.Valuer.
func (ls CartLines) Value() (driver.Value, error) {
	if ls == nil {
		return "[]", nil
	}
	b, err := json.Marshal(ls)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart lines: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (ls *CartLines) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*ls = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for cart lines", src)
	}
	return json.Unmarshal(data, ls)
}

// Total sums unit price times quantity over the lines.
func (ls CartLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range ls {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Cart is the collection of lines owned by one browsing session, in insertion order.
type Cart struct {
	SessionID string    `json:"session_id"`
	Lines     CartLines `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCart returns an empty cart for a session.
func NewCart(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Lines: CartLines{}, UpdatedAt: time.Now()}
}

// Add merges a line into the cart. A line for an item already in the cart only
// increments that line's quantity; the existing name and price are kept. The
// cart is left unchanged when the resulting quantity is out of range.
func (c *Cart) Add(line CartLine) error {
	if line.Quantity < 0 || line.Quantity > MaxLineQuantity {
		return fmt.Errorf("%w: %s quantity %d, limit %d", ErrQuantityOutOfRange, line.ItemID, line.Quantity, MaxLineQuantity)
	}
	qty := line.Qty()
	for i := range c.Lines {
		if c.Lines[i].ItemID == line.ItemID {
			merged := c.Lines[i].Qty() + qty
			if merged > MaxLineQuantity {
				return fmt.Errorf("%w: %s would hold %d, limit %d", ErrQuantityOutOfRange, line.ItemID, merged, MaxLineQuantity)
			}
			c.Lines[i].Quantity = merged
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	line.Quantity = qty
	c.Lines = append(c.Lines, line)
	c.UpdatedAt = time.Now()
	return nil
}

// Remove drops the line for itemID and reports whether it was present.
func (c *Cart) Remove(itemID string) bool {
	for i := range c.Lines {
		if c.Lines[i].ItemID == itemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Lines = CartLines{}
	c.UpdatedAt = time.Now()
}

// Total is computed on demand and never stored.
func (c *Cart) Total() decimal.Decimal {
	return c.Lines.Total()
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
