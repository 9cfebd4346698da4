package clothing

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"
	"github.com/zond/mudkit/lang"
)

// Violation is a rule the wearer broke. Its message is meant for the wearer.
type Violation string

func (v Violation) Error() string {
	return string(v)
}

func violationf(format string, args ...any) Violation {
	return Violation(fmt.Sprintf(format, args...))
}

// IsViolation reports whether err is a Violation, as opposed to an internal error.
func IsViolation(err error) bool {
	var v Violation
	return errors.As(err, &v)
}

// CountType returns how many worn items have the given type.
func (h *Handler) CountType(typ Type) int {
	count := 0
	for _, g := range h.worn {
		if h.config.TypeOf(g) == typ {
			count++
		}
	}
	return count
}

// CanAdd checks whether g can be put on. Adjusting something already worn is
// always allowed.
func (h *Handler) CanAdd(g Garment) error {
	typ := h.config.TypeOf(g)
	if typ == NoType {
		return Violation("You can't wear that.")
	}
	if h.Has(g) {
		return nil
	}
	if h.config.TotalLimit > 0 && len(h.worn) >= h.config.TotalLimit {
		return Violation("You can't wear anything else.")
	}
	if limit, found := h.config.TypeLimits[typ]; found && h.CountType(typ) >= limit {
		return Violation("You can't wear any more of those.")
	}
	return nil
}

// CanRemove checks whether g can be taken off. Covered items can't.
func (h *Handler) CanRemove(g Garment) error {
	if !h.Has(g) {
		return Violation("You're not wearing that.")
	}
	if by := g.GetCoveredBy(); by != "" {
		cover, found := h.Find(by)
		if !found {
			return errors.Wrapf(ErrDangling, "%q covered by %q", g.GetId(), by)
		}
		return violationf("You can't remove that, it's covered by your %s.", cover.GetName())
	}
	return nil
}

// CanCover checks whether toCover can be covered with coverWith.
func (h *Handler) CanCover(toCover Garment, coverWith Garment) error {
	if by := toCover.GetCoveredBy(); by != "" {
		byName := by
		if cover, found := h.Find(by); found {
			byName = cover.GetName()
		}
		return violationf("Your %s is already covered by %s.", toCover.GetName(), lang.Indef(byName))
	}
	typ := h.config.TypeOf(coverWith)
	if typ == NoType {
		return violationf("Your %s isn't clothes.", coverWith.GetName())
	}
	if slices.Contains(h.config.NoCover, typ) {
		return violationf("You can't cover anything with %s.", lang.Indef(coverWith.GetName()))
	}
	if toCover.GetId() == coverWith.GetId() {
		return Violation("You can't cover an item with itself.")
	}
	if by := coverWith.GetCoveredBy(); by != "" {
		byName := by
		if cover, found := h.Find(by); found {
			byName = cover.GetName()
		}
		return violationf("Your %s is covered by %s.", coverWith.GetName(), lang.Indef(byName))
	}
	if h.covers(toCover) {
		return violationf("Your %s is already covering something.", toCover.GetName())
	}
	return nil
}

// CanStyle checks a worn style against the configured maximum length.
func (h *Handler) CanStyle(style string) error {
	if style == "" {
		return nil
	}
	if h.config.StyleMaxLength <= 0 {
		return Violation("Wear styles are disabled.")
	}
	if len([]rune(style)) > h.config.StyleMaxLength {
		return violationf("Please keep your wear style message to less than %d characters.", h.config.StyleMaxLength)
	}
	return nil
}
