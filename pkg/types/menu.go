package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MenuDishes holds the dish composition of a daily menu. Field names follow
// the spreadsheet columns the kitchens already exchange.
type MenuDishes struct {
	Desayuno string `json:"desayuno,omitempty"`
	Entrada  string `json:"entrada,omitempty"`
	Segundo  string `json:"segundo,omitempty"`
	Refresco string `json:"refresco,omitempty"`
	Postre   string `json:"postre,omitempty"`
}

// Value serializes the dishes to JSON.
func (m *MenuDishes) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan decodes JSONB into the dish set.
func (m *MenuDishes) Scan(value interface{}) error {
	if value == nil {
		*m = MenuDishes{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, m)
}

// OrderAddon is an extra item attached to a lunch order with its price at
// order time.
type OrderAddon struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// OrderAddons is the JSONB collection stored on a lunch order.
type OrderAddons []OrderAddon

// Value serializes the addons to JSON.
func (o *OrderAddons) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan decodes JSONB into the addon list.
func (o *OrderAddons) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, o)
}

// Total sums the addon prices.
func (o OrderAddons) Total() decimal.Decimal {
	total := decimal.Zero
	for _, addon := range o {
		total = total.Add(addon.Price)
	}
	return total
}
