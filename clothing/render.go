package clothing

import (
	"slices"

	"github.com/zond/mudkit/lang"
)

// Appearance describes g as worn.
func Appearance(g Garment) string {
	if d, ok := g.(WornDescriber); ok {
		if desc := d.WornDesc(); desc != "" {
			return desc
		}
	}
	return lang.Indef(g.GetName())
}

// Outfit returns the visible items, sorted by the configured type order when
// sorted is set. Types missing from the order go last.
func (h *Handler) Outfit(sorted bool) []Garment {
	visible := h.Visible()
	if !sorted || len(h.config.TypeOrder) == 0 {
		return visible
	}
	byType := map[Type][]Garment{}
	extra := []Garment{}
	for _, g := range visible {
		typ := h.config.TypeOf(g)
		if slices.Contains(h.config.TypeOrder, typ) {
			byType[typ] = append(byType[typ], g)
		} else {
			extra = append(extra, g)
		}
	}
	result := make([]Garment, 0, len(visible))
	for _, typ := range h.config.TypeOrder {
		result = append(result, byType[typ]...)
		delete(byType, typ)
	}
	return append(result, extra...)
}

// Render returns the appearance of each visible item, see Outfit.
func (h *Handler) Render(sorted bool) []string {
	outfit := h.Outfit(sorted)
	result := make([]string, len(outfit))
	for i, g := range outfit {
		result[i] = Appearance(g)
	}
	return result
}
