// Package clothing tracks what a character wears, which worn items cover
// which, and how the visible outfit reads.
package clothing

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/zond/mudkit/lang"
)

var (
	ErrNotWorn  = errors.New("garment not worn")
	ErrDangling = errors.New("garment covered by something not worn")
)

type Tagged interface {
	Tag(category string) string
}

// Garment is anything that can be worn.
type Garment interface {
	Tagged
	GetId() string
	GetName() string
	GetWornStyle() string
	SetWornStyle(string)
	GetCoveredBy() string
	SetCoveredBy(string)
}

// WornDescriber is implemented by garments that describe themselves when worn.
// Garments without it are shown by name.
type WornDescriber interface {
	WornDesc() string
}

// Handler manages the worn items of one wearer. It is not safe for concurrent
// use, callers serialize access per wearer.
type Handler struct {
	config *Config
	wearer string
	worn   []Garment
}

// New returns a handler for the wearer called wearer, wearing worn in order.
func New(config *Config, wearer string, worn ...Garment) *Handler {
	return &Handler{
		config: config,
		wearer: wearer,
		worn:   slices.Clone(worn),
	}
}

func (h *Handler) Config() *Config {
	return h.config
}

// All returns every worn item in the order it was put on.
func (h *Handler) All() []Garment {
	return slices.Clone(h.worn)
}

// Visible returns the worn items that aren't covered.
func (h *Handler) Visible() []Garment {
	result := []Garment{}
	for _, g := range h.worn {
		if g.GetCoveredBy() == "" {
			result = append(result, g)
		}
	}
	return result
}

// IDs returns the IDs of all worn items, for persistence.
func (h *Handler) IDs() []string {
	result := make([]string, len(h.worn))
	for i, g := range h.worn {
		result[i] = g.GetId()
	}
	return result
}

func (h *Handler) index(id string) int {
	return slices.IndexFunc(h.worn, func(g Garment) bool {
		return g.GetId() == id
	})
}

func (h *Handler) Has(g Garment) bool {
	return h.index(g.GetId()) != -1
}

// Find returns the worn item with the given ID, if any.
func (h *Handler) Find(id string) (Garment, bool) {
	if idx := h.index(id); idx != -1 {
		return h.worn[idx], true
	}
	return nil, false
}

// Covering returns the worn items directly covered by g.
func (h *Handler) Covering(g Garment) []Garment {
	result := []Garment{}
	for _, other := range h.worn {
		if other.GetCoveredBy() == g.GetId() {
			result = append(result, other)
		}
	}
	return result
}

func (h *Handler) covers(g Garment) bool {
	return slices.ContainsFunc(h.worn, func(other Garment) bool {
		return other.GetCoveredBy() == g.GetId()
	})
}

func (h *Handler) announce(message string) string {
	return fmt.Sprintf("%s %s.", h.wearer, message)
}

// Add wears g in the given style. Wearing something already worn only adjusts
// the style. New items cover the visible items their type auto covers.
// Returns a message for the room, or "" when quiet.
func (h *Handler) Add(g Garment, style string, quiet bool) string {
	adjust := h.Has(g)
	if !adjust {
		h.worn = append(h.worn, g)
	}
	g.SetWornStyle(style)

	covered := []string{}
	if !adjust {
		if autoCover := h.config.AutoCover[h.config.TypeOf(g)]; len(autoCover) > 0 {
			for _, other := range h.Visible() {
				// Items that cover something can't be covered themselves.
				if other.GetId() == g.GetId() || h.covers(other) {
					continue
				}
				if slices.Contains(autoCover, h.config.TypeOf(other)) {
					other.SetCoveredBy(g.GetId())
					covered = append(covered, lang.Indef(other.GetName()))
				}
			}
		}
	}

	if quiet {
		return ""
	}
	var message string
	if adjust {
		message = fmt.Sprintf("adjusts %s", lang.Indef(g.GetName()))
	} else {
		message = fmt.Sprintf("puts on %s", lang.Indef(g.GetName()))
	}
	if len(covered) > 0 {
		message = fmt.Sprintf("%s, covering %s", message, lang.Enumerator{}.Do(covered...))
	}
	return h.announce(message)
}

// Remove takes g off, revealing anything it covered. Returns a message for
// the room, or "" when quiet.
func (h *Handler) Remove(g Garment, quiet bool) (string, error) {
	idx := h.index(g.GetId())
	if idx == -1 {
		return "", errors.Wrapf(ErrNotWorn, "removing %q from %q", g.GetId(), h.wearer)
	}
	g.SetWornStyle("")
	g.SetCoveredBy("")
	h.worn = slices.Delete(h.worn, idx, idx+1)

	revealed := []string{}
	for _, other := range h.worn {
		if other.GetCoveredBy() == g.GetId() {
			other.SetCoveredBy("")
			revealed = append(revealed, lang.Indef(other.GetName()))
		}
	}

	if quiet {
		return "", nil
	}
	message := fmt.Sprintf("removes %s", lang.Indef(g.GetName()))
	if len(revealed) > 0 {
		message = fmt.Sprintf("%s, revealing %s", message, lang.Enumerator{}.Do(revealed...))
	}
	return h.announce(message), nil
}

// Clear silently removes everything.
func (h *Handler) Clear() {
	for _, g := range h.worn {
		g.SetWornStyle("")
		g.SetCoveredBy("")
	}
	h.worn = nil
}

// Repair drops duplicate entries and clears covers pointing at items that
// aren't worn or that are covered themselves. Returns the IDs it touched.
func (h *Handler) Repair() []string {
	touched := []string{}
	seen := map[string]bool{}
	deduped := []Garment{}
	for _, g := range h.worn {
		if seen[g.GetId()] {
			touched = append(touched, g.GetId())
			continue
		}
		seen[g.GetId()] = true
		deduped = append(deduped, g)
	}
	h.worn = deduped
	for _, g := range h.worn {
		by := g.GetCoveredBy()
		if by == "" {
			continue
		}
		cover, found := h.Find(by)
		if !found || cover.GetId() == g.GetId() || cover.GetCoveredBy() != "" {
			g.SetCoveredBy("")
			touched = append(touched, g.GetId())
		}
	}
	return touched
}

// Check verifies the layering invariants.
func (h *Handler) Check() error {
	seen := map[string]bool{}
	for _, g := range h.worn {
		if seen[g.GetId()] {
			return errors.Errorf("%q worn twice by %q", g.GetId(), h.wearer)
		}
		seen[g.GetId()] = true
	}
	for _, g := range h.worn {
		by := g.GetCoveredBy()
		if by == "" {
			continue
		}
		if by == g.GetId() {
			return errors.Errorf("%q covers itself", by)
		}
		cover, found := h.Find(by)
		if !found {
			return errors.Wrapf(ErrDangling, "%q covered by %q", g.GetId(), by)
		}
		if cover.GetCoveredBy() != "" {
			return errors.Errorf("%q covered by %q which is covered by %q", g.GetId(), by, cover.GetCoveredBy())
		}
	}
	return nil
}
