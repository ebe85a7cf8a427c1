// Package monitor reports how a freshly scraped catalog differs from the
// previously stored one.
package monitor

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/IshaanNene/catalogscraper/internal/catalog"
)

// ChangeType identifies what kind of change occurred.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// Change is one product-level difference. Field is set only for
// modifications.
type Change struct {
	Key       string     `json:"key"`
	ProductID string     `json:"product_id"`
	Type      ChangeType `json:"type"`
	Field     string     `json:"field,omitempty"`
	OldValue  string     `json:"old_value,omitempty"`
	NewValue  string     `json:"new_value,omitempty"`
}

// Report summarises a diff.
type Report struct {
	Changes  []Change
	Added    int
	Modified int
	Removed  int
}

// Empty reports whether the catalogs are equivalent.
func (r *Report) Empty() bool { return len(r.Changes) == 0 }

// productKey identifies a product across runs. Sequence IDs shift when the
// site reorders cards, so the product URL is preferred.
func productKey(p *catalog.Product) string {
	if p.URL != "" {
		return p.URL
	}
	return "id:" + p.ID
}

func index(c *catalog.Catalog) (map[string]*catalog.Product, []string) {
	m := make(map[string]*catalog.Product)
	var order []string
	if c == nil {
		return m, order
	}
	for _, cat := range c.Categories {
		for _, p := range cat.Products {
			k := productKey(p)
			if _, dup := m[k]; dup {
				continue
			}
			m[k] = p
			order = append(order, k)
		}
	}
	return m, order
}

// Diff compares two catalogs product by product. Either side may be nil.
// Changes are ordered: additions and modifications in the order of next,
// then removals in the order of prev.
func Diff(prev, next *catalog.Catalog) *Report {
	old, oldOrder := index(prev)
	cur, curOrder := index(next)
	r := &Report{}

	for _, k := range curOrder {
		p := cur[k]
		o, ok := old[k]
		if !ok {
			r.Changes = append(r.Changes, Change{Key: k, ProductID: p.ID, Type: ChangeAdded})
			r.Added++
			continue
		}
		fields := compare(o, p)
		for i := range fields {
			fields[i].Key = k
			fields[i].ProductID = p.ID
		}
		if len(fields) > 0 {
			r.Changes = append(r.Changes, fields...)
			r.Modified++
		}
	}

	for _, k := range oldOrder {
		if _, ok := cur[k]; !ok {
			r.Changes = append(r.Changes, Change{Key: k, ProductID: old[k].ID, Type: ChangeRemoved})
			r.Removed++
		}
	}
	return r
}

func compare(o, p *catalog.Product) []Change {
	var out []Change
	add := func(field, a, b string) {
		if a != b {
			out = append(out, Change{
				Type:     ChangeModified,
				Field:    field,
				OldValue: truncateStr(a, 200),
				NewValue: truncateStr(b, 200),
			})
		}
	}

	add("name", o.Name, p.Name)
	add("image", o.Image, p.Image)
	for _, key := range catalog.TextKeys() {
		add(key, *o.TextField(key), *p.TextField(key))
	}
	add("specifications", strings.Join(o.Specifications, "\n"), strings.Join(p.Specifications, "\n"))
	add("technical_characteristics", flatten(o.TechnicalCharacteristics), flatten(p.TechnicalCharacteristics))
	return out
}

func flatten(m map[string]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(m[k])
		b.WriteByte('\n')
	}
	return b.String()
}

// Log writes the report counts, and each change at debug level.
func (r *Report) Log(logger *slog.Logger) {
	logger = logger.With("component", "change_monitor")
	for _, c := range r.Changes {
		logger.Debug("catalog change",
			"type", c.Type,
			"product_id", c.ProductID,
			"field", c.Field,
		)
	}
	logger.Info("catalog changes",
		"added", r.Added,
		"modified", r.Modified,
		"removed", r.Removed,
	)
}

func truncateStr(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
