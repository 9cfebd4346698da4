package clothing

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/zond/mudkit/lang"
)

// Cover hides the worn toCover under coverWith, putting coverWith on first if
// needed. Returns a message for the room.
func (h *Handler) Cover(toCover Garment, coverWith Garment) (string, error) {
	if !h.Has(toCover) {
		return "", violationf("You're not wearing %s.", lang.Indef(toCover.GetName()))
	}
	if err := h.CanCover(toCover, coverWith); err != nil {
		return "", err
	}
	if !h.Has(coverWith) {
		if err := h.CanAdd(coverWith); err != nil {
			return "", err
		}
		h.Add(coverWith, "", true)
	}
	toCover.SetCoveredBy(coverWith.GetId())
	return h.announce(fmt.Sprintf("covers %s with %s", lang.Indef(toCover.GetName()), lang.Indef(coverWith.GetName()))), nil
}

// Uncover reveals g without removing what covers it. Not possible when the
// covering item is covered itself.
func (h *Handler) Uncover(g Garment) (string, error) {
	if !h.Has(g) {
		return "", violationf("You're not wearing %s.", lang.Indef(g.GetName()))
	}
	by := g.GetCoveredBy()
	if by == "" {
		return "", violationf("Your %s isn't covered by anything.", g.GetName())
	}
	cover, found := h.Find(by)
	if !found {
		return "", errors.Wrapf(ErrDangling, "%q covered by %q", g.GetId(), by)
	}
	if cover.GetCoveredBy() != "" {
		return "", violationf("Your %s is under too many layers to uncover.", g.GetName())
	}
	g.SetCoveredBy("")
	return h.announce(fmt.Sprintf("uncovers %s", lang.Indef(g.GetName()))), nil
}
