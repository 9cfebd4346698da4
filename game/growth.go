package game

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/features"
	"github.com/zond/mudkit/growth"
	"github.com/zond/mudkit/structs"
)

const (
	growEventName = "grow"
)

// growthScheduler schedules grow events for one object on the queue.
type growthScheduler struct {
	game *Game
	id   string
}

func (s growthScheduler) ScheduleGrow(after time.Duration) error {
	q := s.game.storage.Queue()
	return mudkit.WithStack(q.Push(context.Background(), &structs.Event{
		At:     uint64(q.After(after)),
		Object: s.id,
		Call:   structs.Call{Name: growEventName},
	}))
}

// growthOf returns the growth handler of obj, giving it a growth state if it
// had none.
func (g *Game) growthOf(obj *structs.Object) *growth.Handler {
	if obj.Growth == nil {
		obj.Growth = growth.NewState(time.Now())
	}
	return growth.New(obj.Growth, obj, growth.Options{
		Interval:  g.config.GetGrowthInterval(),
		Scheduler: growthScheduler{game: g, id: obj.Id},
		Hooks:     g.growthHooks,
	})
}

// withGrowth calls f with the growth handler of the object with id, and
// redescribes the decor of its room if it is placed there. Objects without
// growth are skipped unless create is set.
func (g *Game) withGrowth(id string, create bool, f func(obj *structs.Object, h *growth.Handler) error) error {
	placed := false
	location := ""
	if err := g.storage.WithObjects([]string{id}, func(objs map[string]*structs.Object) error {
		obj := objs[id]
		if obj.Growth == nil && !create {
			return nil
		}
		placed = obj.Placed != ""
		location = obj.Location
		return f(obj, g.growthOf(obj))
	}); err != nil {
		return err
	}
	if placed && location != "" {
		return g.updateDecor(location)
	}
	return nil
}

// grow grows the object with id, if it has growth.
func (g *Game) grow(id string, force bool) error {
	return g.withGrowth(id, false, func(_ *structs.Object, h *growth.Handler) error {
		return h.Grow(force)
	})
}

// builtinGrowthHooks are the hooks every stage may name.
func builtinGrowthHooks() map[string]growth.Hook {
	return map[string]growth.Hook{
		// tag <category> [value] sets or clears a tag.
		"tag": func(gr growth.Grower, args ...string) error {
			obj, ok := gr.(*structs.Object)
			if !ok {
				return errors.Errorf("%T can't be tagged", gr)
			}
			switch len(args) {
			case 1:
				obj.SetTag(args[0], "")
			case 2:
				obj.SetTag(args[0], args[1])
			default:
				return errors.Errorf("usage: tag <category> [value], got %q", args)
			}
			return nil
		},
		// feature <name> <values...> merges values into a feature.
		"feature": func(gr growth.Grower, args ...string) error {
			obj, ok := gr.(*structs.Object)
			if !ok {
				return errors.Errorf("%T has no features", gr)
			}
			if len(args) < 2 {
				return errors.Errorf("usage: feature <name> <values...>, got %q", args)
			}
			if obj.Features == nil {
				obj.Features = features.New()
			}
			return obj.Features.Merge(args[0], false, map[string][]string{features.ValueKey: args[1:]})
		},
	}
}
