package cart

import (
	"encoding/json"
	"errors"
	"strings"
)

// MaxQuantity caps the units a single line may hold.
const MaxQuantity = 999

var (
	// ErrInvalidQuantity is returned when a line would hold fewer than one unit.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrQuantityTooLarge is returned when a line would exceed MaxQuantity,
	// including when a merge pushes an existing line past it.
	ErrQuantityTooLarge = errors.New("quantity exceeds the per-line maximum")
)

// LineItem is one (product, size) entry in a cart. UnitPrice is captured
// when the item is added and is not refreshed from the catalog afterwards.
type LineItem struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
}

// LineTotal is UnitPrice x Quantity.
func (l LineItem) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

func (l LineItem) matches(productID, size string) bool {
	return l.ProductID == strings.TrimSpace(productID) && l.Size == strings.TrimSpace(size)
}

func checkQuantity(quantity int) error {
	switch {
	case quantity < 1:
		return ErrInvalidQuantity
	case quantity > MaxQuantity:
		return ErrQuantityTooLarge
	}
	return nil
}

// Cart is an ordered list of line items keyed by (product id, size label).
// The zero value is an empty cart. A Cart is not safe for concurrent use.
type Cart struct {
	items []LineItem
}

// New builds a cart from previously stored lines, merging duplicate keys and
// dropping lines whose quantity is out of range.
func New(items []LineItem) Cart {
	var c Cart
	for _, item := range items {
		_ = c.AddItem(item)
	}
	return c
}

// AddItem merges into the existing line for the same key by incrementing its
// quantity, or appends a new line. The existing line keeps its captured price.
// A merge that would exceed MaxQuantity leaves the line unchanged.
func (c *Cart) AddItem(item LineItem) error {
	if err := checkQuantity(item.Quantity); err != nil {
		return err
	}
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.Size = strings.TrimSpace(item.Size)

	for i := range c.items {
		if c.items[i].matches(item.ProductID, item.Size) {
			if c.items[i].Quantity > MaxQuantity-item.Quantity {
				return ErrQuantityTooLarge
			}
			c.items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

// UpdateQuantity replaces the quantity of the matching line. It is a no-op
// when no line matches.
func (c *Cart) UpdateQuantity(productID, size string, quantity int) error {
	if err := checkQuantity(quantity); err != nil {
		return err
	}
	for i := range c.items {
		if c.items[i].matches(productID, size) {
			c.items[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

// RemoveItem deletes the matching line. Removing an absent line is a no-op.
func (c *Cart) RemoveItem(productID, size string) {
	for i := range c.items {
		if c.items[i].matches(productID, size) {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

func (c *Cart) Clear() {
	c.items = nil
}

// Subtotal sums UnitPrice x Quantity over all lines.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.items {
		total += item.LineTotal()
	}
	return total
}

// ItemCount sums quantities over all lines.
func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.items {
		count += item.Quantity
	}
	return count
}

// Items returns a copy of the lines in insertion order.
func (c Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

func (c Cart) Len() int {
	return len(c.items)
}

// Find returns the line for the key, if present.
func (c Cart) Find(productID, size string) (LineItem, bool) {
	for _, item := range c.items {
		if item.matches(productID, size) {
			return item, true
		}
	}
	return LineItem{}, false
}

// ProductIDs returns the distinct product ids in first-seen order.
func (c Cart) ProductIDs() []string {
	seen := make(map[string]struct{}, len(c.items))
	ids := make([]string, 0, len(c.items))
	for _, item := range c.items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// ContainsProduct reports whether any line references productID.
func (c Cart) ContainsProduct(productID string) bool {
	for _, item := range c.items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the cart as its line array.
func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func (c *Cart) UnmarshalJSON(data []byte) error {
	var items []LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*c = New(items)
	return nil
}
