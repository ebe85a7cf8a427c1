// Package catalog holds the scraped catalog document and its merge rules.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Catalog is the persisted document.
type Catalog struct {
	Categories []*Category `json:"categories" bson:"categories"`
}

// Category groups products in discovery order.
type Category struct {
	ID          string     `json:"id"          bson:"id"`
	Name        string     `json:"name"        bson:"name"`
	Description string     `json:"description" bson:"description"`
	URL         string     `json:"url,omitempty" bson:"url,omitempty"`
	Products    []*Product `json:"products"    bson:"products"`
}

// Product is a single catalog entry. Optional free-text fields are omitted
// from JSON when empty.
type Product struct {
	ID             string   `json:"id"                       bson:"id"`
	Name           string   `json:"name"                     bson:"name"`
	Description    string   `json:"description"              bson:"description"`
	Image          string   `json:"image,omitempty"          bson:"image,omitempty"`
	URL            string   `json:"url,omitempty"            bson:"url,omitempty"`
	Specifications []string `json:"specifications,omitempty" bson:"specifications,omitempty"`

	TechnicalCharacteristics map[string]string `json:"technical_characteristics,omitempty" bson:"technical_characteristics,omitempty"`

	Application       string `json:"application,omitempty"        bson:"application,omitempty"`
	Consumption       string `json:"consumption,omitempty"        bson:"consumption,omitempty"`
	DeliveryForm      string `json:"delivery_form,omitempty"      bson:"delivery_form,omitempty"`
	ShelfLife         string `json:"shelf_life,omitempty"         bson:"shelf_life,omitempty"`
	Safety            string `json:"safety,omitempty"             bson:"safety,omitempty"`
	Preparation       string `json:"preparation,omitempty"        bson:"preparation,omitempty"`
	PreparationMethod string `json:"preparation_method,omitempty" bson:"preparation_method,omitempty"`
	ApplicationMethod string `json:"application_method,omitempty" bson:"application_method,omitempty"`
	Recommendations   string `json:"recommendations,omitempty"    bson:"recommendations,omitempty"`
	TU                string `json:"tu,omitempty"                 bson:"tu,omitempty"`
	Composition       string `json:"composition,omitempty"        bson:"composition,omitempty"`
	Appearance        string `json:"appearance,omitempty"         bson:"appearance,omitempty"`
}

// TextField returns a pointer to the free-text field stored under the given
// JSON key, or nil for unknown keys and for structured fields.
func (p *Product) TextField(key string) *string {
	switch key {
	case "description":
		return &p.Description
	case "application":
		return &p.Application
	case "consumption":
		return &p.Consumption
	case "delivery_form":
		return &p.DeliveryForm
	case "shelf_life":
		return &p.ShelfLife
	case "safety":
		return &p.Safety
	case "preparation":
		return &p.Preparation
	case "preparation_method":
		return &p.PreparationMethod
	case "application_method":
		return &p.ApplicationMethod
	case "recommendations":
		return &p.Recommendations
	case "tu":
		return &p.TU
	case "composition":
		return &p.Composition
	case "appearance":
		return &p.Appearance
	}
	return nil
}

// textKeys lists every key TextField understands.
var textKeys = []string{
	"description", "application", "consumption", "delivery_form", "shelf_life",
	"safety", "preparation", "preparation_method", "application_method",
	"recommendations", "tu", "composition", "appearance",
}

// TextKeys returns the JSON keys of all free-text product fields.
func TextKeys() []string {
	return append([]string(nil), textKeys...)
}

// Enrich merges update into p. A field is overwritten only when the new value
// is non-empty; ID, URL and Name never change. Characteristics are merged
// key by key with update winning.
func (p *Product) Enrich(update *Product) {
	if update == nil {
		return
	}
	for _, key := range textKeys {
		if v := strings.TrimSpace(*update.TextField(key)); v != "" {
			*p.TextField(key) = v
		}
	}
	if update.Image != "" {
		p.Image = update.Image
	}
	if len(update.Specifications) > 0 {
		p.Specifications = append([]string(nil), update.Specifications...)
	}
	if len(update.TechnicalCharacteristics) > 0 {
		if p.TechnicalCharacteristics == nil {
			p.TechnicalCharacteristics = make(map[string]string, len(update.TechnicalCharacteristics))
		}
		for k, v := range update.TechnicalCharacteristics {
			if k != "" && v != "" {
				p.TechnicalCharacteristics[k] = v
			}
		}
	}
}

// ProductCount returns the number of products across all categories.
func (c *Catalog) ProductCount() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Products)
	}
	return n
}

// Category returns the category with the given ID, or nil.
func (c *Catalog) Category(id string) *Category {
	for _, cat := range c.Categories {
		if cat.ID == id {
			return cat
		}
	}
	return nil
}

// Product returns the product with the given ID and its category, or nils.
func (c *Catalog) Product(id string) (*Product, *Category) {
	for _, cat := range c.Categories {
		for _, p := range cat.Products {
			if p.ID == id {
				return p, cat
			}
		}
	}
	return nil, nil
}

// Encode writes the catalog as two-space indented JSON with non-ASCII text
// and markup characters left unescaped.
func (c *Catalog) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return nil
}

// Decode reads a catalog document from r.
func Decode(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for _, cat := range c.Categories {
		if cat.Products == nil {
			cat.Products = []*Product{}
		}
	}
	return &c, nil
}
