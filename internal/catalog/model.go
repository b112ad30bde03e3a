package catalog

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// Lane is the preparation area an item is ordered for.
type Lane string

const (
	LaneKitchen Lane = "kitchen"
	LaneBar     Lane = "bar"
)

// DefaultKitchenThreshold is the category id below which items without an
// explicit source belong to the kitchen.
const DefaultKitchenThreshold = 30000

// UnknownSupplier names the supplier group of items without one.
const UnknownSupplier = "Unknown Supplier"

// Item is a catalog entry. The JSON files are edited by hand, so numeric
// fields may arrive as strings and the other way around.
type Item struct {
	SKU             string `json:"item_sku"`
	Name            string `json:"item_name"`
	CategoryID      int    `json:"category_id"`
	CategoryName    string `json:"category_name"`
	SubCategory     string `json:"sub_category"`
	DefaultSupplier string `json:"default_supplier"`
	DefaultQuantity string `json:"default_quantity"`
	MeasureUnit     string `json:"measure_unit"`
	Source          string `json:"source"`
}

// UnmarshalJSON decodes loosely typed item records.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*it = itemFromMap(raw)
	return nil
}

func itemFromMap(raw map[string]any) Item {
	return Item{
		SKU:             text(raw["item_sku"]),
		Name:            text(raw["item_name"]),
		CategoryID:      number(raw["category_id"]),
		CategoryName:    text(raw["category_name"]),
		SubCategory:     text(raw["sub_category"]),
		DefaultSupplier: text(raw["default_supplier"]),
		DefaultQuantity: text(raw["default_quantity"]),
		MeasureUnit:     text(raw["measure_unit"]),
		Source:          text(raw["source"]),
	}
}

// Lane routes the item: an explicit source wins, otherwise category ids
// below threshold are kitchen items.
func (it Item) Lane(threshold int) Lane {
	switch strings.ToLower(it.Source) {
	case string(LaneKitchen):
		return LaneKitchen
	case "":
		if it.CategoryID < threshold {
			return LaneKitchen
		}
	}
	return LaneBar
}

// Qty is the default order quantity; empty or non-numeric values mean 1.
func (it Item) Qty() int {
	n, err := cast.ToIntE(strings.TrimSpace(it.DefaultQuantity))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// QtyText is the default quantity as written in the catalog, or "1".
func (it Item) QtyText() string {
	if it.DefaultQuantity == "" {
		return "1"
	}
	return it.DefaultQuantity
}

// Unit returns the measure unit or fallback when it is empty.
func (it Item) Unit(fallback string) string {
	if it.MeasureUnit == "" {
		return fallback
	}
	return it.MeasureUnit
}

// Category groups items under a kitchen or bar parent.
type Category struct {
	ID     int    `json:"category_id"`
	Name   string `json:"category_name"`
	Parent string `json:"parent_category"`
}

// UnmarshalJSON decodes loosely typed category records.
func (c *Category) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Category{
		ID:     number(raw["category_id"]),
		Name:   text(raw["category_name"]),
		Parent: text(raw["parent_category"]),
	}
	return nil
}

// Supplier is a vendor items are ordered from. Enabled defaults to true.
type Supplier struct {
	Name    string `json:"supplier"`
	Enabled bool   `json:"enabled"`
}

// UnmarshalJSON decodes loosely typed supplier records.
func (s *Supplier) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = text(raw["supplier"])
	s.Enabled = true
	if v, ok := raw["enabled"]; ok && v != nil {
		s.Enabled = cast.ToBool(v)
	}
	return nil
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case json.Number:
		return x.String()
	}
	return strings.TrimSpace(cast.ToString(v))
}

func number(v any) int {
	if n, err := cast.ToIntE(v); err == nil {
		return n
	}
	return int(cast.ToFloat64(v))
}
