package game

import (
	"fmt"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/lang"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
)

func (c *Connection) wearCommands() commands {
	return []command{
		{
			names: m("wear"),
			f:     (*Connection).wearCommand,
		},
		{
			names: m("remove"),
			f: c.identifyingCommand(defaultNone, scopeCarried, "Usage: remove <object>", func(c *Connection, s *surroundings, target *structs.Object, _ string) error {
				if !s.wears(target) {
					fmt.Fprintln(c.term, "You're not wearing that.")
					return nil
				}
				return c.removeWorn(s, target)
			}),
		},
		{
			names: m("cover"),
			f:     (*Connection).coverCommand,
		},
		{
			names: m("uncover"),
			f: c.identifyingCommand(defaultNone, scopeCarried, "Usage: uncover <worn clothing object>", func(c *Connection, s *surroundings, target *structs.Object, _ string) error {
				return c.dress(s, func(w *wardrobe) (string, error) {
					garment, found := w.handler.Find(target.Id)
					if !found {
						return "", clothing.Violation(fmt.Sprintf("You're not wearing %s.", lang.Indef(target.Name)))
					}
					return w.handler.Uncover(garment)
				}, target.Id)
			}),
		},
	}
}

// dress changes what self wears through f, with the objects with the extra
// IDs loaded, and announces the message f returns to the room.
func (c *Connection) dress(s *surroundings, f func(w *wardrobe) (string, error), extra ...string) error {
	var message string
	if err := c.game.withWardrobe(s.self.Id, extra, func(w *wardrobe) error {
		var err error
		message, err = f(w)
		return err
	}); err != nil {
		return err
	}
	if message == "" {
		return nil
	}
	if s.self.Location == "" {
		fmt.Fprintln(c.term, message)
		return nil
	}
	return c.game.emit(s.self.Location, message)
}

func (c *Connection) wearCommand(args string) error {
	pattern, style, _ := splitAt(args, "=")
	if pattern == "" {
		if c.game.clothing.StyleMaxLength > 0 {
			fmt.Fprintln(c.term, "Usage: wear <obj> [= wear style]")
		} else {
			fmt.Fprintln(c.term, "Usage: wear <obj>")
		}
		return nil
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	obj, err := c.search(s, pattern, s.carried)
	if err != nil || obj == nil {
		return err
	}
	if s.wears(obj) && style == "" {
		fmt.Fprintln(c.term, "You're already wearing that.")
		return nil
	}
	return c.dress(s, func(w *wardrobe) (string, error) {
		if w.objs[obj.Id].Location != s.self.Id {
			return "", mudkit.WithStack(storage.ErrMoved)
		}
		garment := w.objs[obj.Id].AsGarment()
		if err := w.handler.CanStyle(style); err != nil {
			return "", err
		}
		if err := w.handler.CanAdd(garment); err != nil {
			return "", err
		}
		if existing, found := w.handler.Find(obj.Id); found {
			garment = existing
		}
		return w.handler.Add(garment, style, false), nil
	}, obj.Id)
}

func (c *Connection) coverCommand(args string) error {
	toCoverPattern, coverWithPattern, _ := splitAt(args, " with ")
	if toCoverPattern == "" || coverWithPattern == "" {
		fmt.Fprintln(c.term, "Usage: cover <worn clothing> with <clothing object>")
		return nil
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	toCover, err := c.search(s, toCoverPattern, s.carried)
	if err != nil || toCover == nil {
		return err
	}
	coverWith, err := c.search(s, coverWithPattern, s.carried)
	if err != nil || coverWith == nil {
		return err
	}
	return c.dress(s, func(w *wardrobe) (string, error) {
		garment, found := w.handler.Find(toCover.Id)
		if !found {
			return "", clothing.Violation(fmt.Sprintf("You're not wearing %s.", lang.Indef(toCover.Name)))
		}
		with, found := w.handler.Find(coverWith.Id)
		if !found {
			with = w.objs[coverWith.Id].AsGarment()
		}
		return w.handler.Cover(garment, with)
	}, toCover.Id, coverWith.Id)
}
