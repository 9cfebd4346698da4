package game

import (
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/decor"
	"github.com/zond/mudkit/lang"
	"github.com/zond/mudkit/multimatch"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
)

// surroundings is what a character can see and reach.
type surroundings struct {
	self *structs.Object
	// room is nil when the character is nowhere.
	room    *structs.Object
	carried structs.Objects
	// nearby is the content of the room, except the character.
	nearby structs.Objects
}

func (g *Game) surroundingsOf(id string) (*surroundings, error) {
	self, err := g.storage.GetObject(id)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	carried, err := g.storage.Content(self)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	result := &surroundings{
		self:    self,
		carried: carried,
		nearby:  structs.Objects{},
	}
	if self.Location == "" {
		return result, nil
	}
	if result.room, err = g.storage.GetObject(self.Location); err != nil {
		return nil, mudkit.WithStack(err)
	}
	content, err := g.storage.Content(result.room)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	for _, obj := range content {
		if obj.Id != self.Id {
			result.nearby = append(result.nearby, obj)
		}
	}
	return result, nil
}

type searchScope int

const (
	scopeCarried searchScope = iota
	scopeNearby
	scopeAll
)

func (s *surroundings) candidates(scope searchScope) structs.Objects {
	switch scope {
	case scopeCarried:
		return s.carried
	case scopeNearby:
		return s.nearby
	}
	return append(slices.Clone(s.carried), s.nearby...)
}

func (s *surroundings) wears(obj *structs.Object) bool {
	return slices.Contains(s.self.Worn, obj.Id)
}

// extra tells apart objects with the same name by where they are.
func (s *surroundings) extra(obj *structs.Object) string {
	switch {
	case s.wears(obj):
		return " (worn)"
	case obj.Location == s.self.Id:
		return " (carried)"
	}
	return ""
}

// search returns the object among candidates named by pattern, asking the
// player to choose when several match. Returns nil, after telling the player
// why, when nothing was found or chosen.
func (c *Connection) search(s *surroundings, pattern string, candidates structs.Objects) (*structs.Object, error) {
	pattern = strings.TrimSpace(pattern)
	switch strings.ToLower(pattern) {
	case "me", "self":
		return s.self, nil
	case "here":
		if s.room != nil {
			return s.room, nil
		}
	}
	if c.wiz && strings.HasPrefix(pattern, "#") {
		obj, err := c.game.storage.GetObject(pattern[1:])
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(c.term, "Could not find '%s'.\n", pattern)
			return nil, nil
		}
		return obj, mudkit.WithStack(err)
	}
	matches := candidates.Identify(pattern)
	if len(matches) == 0 {
		fmt.Fprintf(c.term, "Could not find '%s'.\n", pattern)
		return nil, nil
	}
	obj, err := multimatch.Select(c.term, c.term, pattern, matches, s.extra)
	var notChosen multimatch.Error
	if errors.As(err, &notChosen) {
		fmt.Fprintln(c.term, notChosen.Error())
		return nil, nil
	} else if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return obj, nil
}

// existing returns the ids of objects that exist.
func (g *Game) existing(ids []string) ([]string, error) {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := g.storage.GetObject(id); errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, mudkit.WithStack(err)
		}
		result = append(result, id)
	}
	return result, nil
}

// emit writes message to the players in the room with roomID, except the
// excluded ones.
func (g *Game) emit(roomID string, message string, exclude ...string) error {
	if roomID == "" {
		return nil
	}
	room, err := g.storage.GetObject(roomID)
	if err != nil {
		return mudkit.WithStack(err)
	}
	var fanout *Fanout
	for id := range room.Content {
		if slices.Contains(exclude, id) {
			continue
		}
		if conn, found := g.connectionByObjectID.GetHas(id); found {
			fanout = fanout.Push(conn.term)
		}
	}
	if _, err := fmt.Fprintln(fanout, message); err != nil {
		log.Printf("Emitting to %q: %v", roomID, err)
	}
	return nil
}

// tell writes message to the player of the character with id, if connected.
func (g *Game) tell(id string, message string) {
	if conn, found := g.connectionByObjectID.GetHas(id); found {
		fmt.Fprintln(conn.term, message)
	}
}

// move puts the object with id in dest. Holders wearing it take it off
// first, and rooms it was placed in get their decor redescribed.
func (g *Game) move(id string, dest string) error {
	obj, err := g.storage.GetObject(id)
	if err != nil {
		return mudkit.WithStack(err)
	}
	from := obj.Location
	if from == dest {
		return nil
	}
	if from != "" {
		holder, err := g.storage.GetObject(from)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if slices.Contains(holder.Worn, id) {
			if err := g.withWardrobe(from, nil, func(w *wardrobe) error {
				if garment, found := w.handler.Find(id); found {
					_, err := w.handler.Remove(garment, true)
					return err
				}
				return nil
			}); err != nil {
				return mudkit.WithStack(err)
			}
		}
	}
	if _, err := g.storage.MoveObject(id, dest); err != nil {
		return mudkit.WithStack(err)
	}
	if obj.Placed != "" && from != "" {
		return g.updateDecor(from)
	}
	return nil
}

// updateDecor redescribes what is placed in the room with roomID.
func (g *Game) updateDecor(roomID string) error {
	room, err := g.storage.GetObject(roomID)
	if err != nil {
		return mudkit.WithStack(err)
	}
	content, err := g.storage.Content(room)
	if err != nil {
		return mudkit.WithStack(err)
	}
	placed := []decor.Placeable{}
	for _, obj := range content {
		if obj.Placed != "" {
			placed = append(placed, obj)
		}
	}
	desc := decor.Describe(placed, decor.RandomSwap)
	return g.storage.WithObjects([]string{roomID}, func(objs map[string]*structs.Object) error {
		objs[roomID].DecorDesc = desc
		return nil
	})
}

// canDecorate reports whether the character self may place things in room.
func (c *Connection) canDecorate(self *structs.Object, room *structs.Object) bool {
	if room == nil || room.Kind != structs.KindRoom {
		return false
	}
	return c.wiz || decor.CanDecorate(room.Owner, room.Decorators, self.Owner)
}

// wardrobe is a character and what it wears, loaded for one update.
type wardrobe struct {
	wearer  *structs.Object
	objs    map[string]*structs.Object
	handler *clothing.Handler
}

// withWardrobe loads the character with wearerID, what it wears, and the
// objects with the extra IDs. It lets f change them through the clothing
// handler, and stores them all unless f fails.
func (g *Game) withWardrobe(wearerID string, extra []string, f func(w *wardrobe) error) error {
	wearer, err := g.storage.GetObject(wearerID)
	if err != nil {
		return mudkit.WithStack(err)
	}
	worn, err := g.existing(wearer.Worn)
	if err != nil {
		return mudkit.WithStack(err)
	}
	ids := append([]string{wearerID}, worn...)
	ids = append(ids, extra...)
	return g.storage.WithObjects(ids, func(objs map[string]*structs.Object) error {
		wearer := objs[wearerID]
		garments := []clothing.Garment{}
		for _, id := range wearer.Worn {
			obj, found := objs[id]
			switch {
			case !found:
				if _, err := g.storage.GetObject(id); err == nil {
					// Put on after we looked.
					return mudkit.WithStack(storage.ErrMoved)
				}
				log.Printf("%q worn by %q is gone", id, wearerID)
			case obj.Location != wearerID:
				// The new holder may wear it already, so only the entry goes.
				log.Printf("%q worn by %q is in %q", id, wearerID, obj.Location)
			default:
				garments = append(garments, obj.AsGarment())
			}
		}
		h := clothing.New(g.clothing, wearer.Name, garments...)
		if touched := h.Repair(); len(touched) > 0 {
			log.Printf("Repaired %v worn by %q", touched, wearerID)
		}
		if err := f(&wardrobe{wearer: wearer, objs: objs, handler: h}); err != nil {
			return err
		}
		if err := h.Check(); err != nil {
			return mudkit.WithStack(err)
		}
		wearer.Worn = h.IDs()
		return nil
	})
}

// outfit renders what the character obj visibly wears.
func (g *Game) outfit(obj *structs.Object) ([]string, error) {
	ids, err := g.existing(obj.Worn)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	worn, err := g.storage.GetObjects(ids...)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	garments := []clothing.Garment{}
	for _, w := range worn {
		if w.Location == obj.Id {
			garments = append(garments, w.AsGarment())
		}
	}
	h := clothing.New(g.clothing, obj.Name, garments...)
	h.Repair()
	return h.Render(true), nil
}

// describeRoom shows the room around s, its decor, and what is in it.
func (c *Connection) describeRoom(s *surroundings) {
	if s.room == nil {
		fmt.Fprintln(c.term, "You have no location to look at.")
		return
	}
	fmt.Fprintln(c.term, s.room.Name)
	desc := strings.TrimSpace(strings.Join([]string{s.room.Desc, s.room.DecorDesc}, " "))
	if desc != "" {
		fmt.Fprintln(c.term)
		fmt.Fprintln(c.term, desc)
	}
	characters := []string{}
	things := structs.Objects{}
	for _, obj := range decor.Unplaced(s.nearby) {
		if obj.Kind == structs.KindCharacter {
			characters = append(characters, obj.Name)
		} else {
			things = append(things, obj)
		}
	}
	if len(things) > 0 {
		fmt.Fprintln(c.term)
		fmt.Fprintf(c.term, "You see: %s.\n", decor.Things(things))
	}
	if len(characters) > 0 {
		fmt.Fprintln(c.term)
		fmt.Fprintf(c.term, "%s here.\n", lang.Enumerator{Tense: lang.Present}.Do(characters...))
	}
}

// describeObject shows obj, its features, and what it wears.
func (c *Connection) describeObject(obj *structs.Object) error {
	fmt.Fprintln(c.term, obj.Name)
	if obj.Desc != "" {
		fmt.Fprintln(c.term, obj.Desc)
	}
	subject := "It"
	if obj.Kind == structs.KindCharacter {
		subject = obj.Name
	}
	if obj.Features != nil && len(obj.Features.Order) > 0 {
		fmt.Fprintf(c.term, "%s has %s.\n", subject, obj.Features.View())
	}
	if obj.Kind != structs.KindCharacter {
		return nil
	}
	outfit, err := c.game.outfit(obj)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(outfit) > 0 {
		fmt.Fprintf(c.term, "%s is wearing %s.\n", subject, lang.Enumerator{}.Do(outfit...))
	}
	return nil
}

// describeContent shows what the holder contains.
func (c *Connection) describeContent(holder *structs.Object) error {
	content, err := c.game.storage.Content(holder)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(content) == 0 {
		fmt.Fprintf(c.term, "There is nothing in %s.\n", lang.Indef(holder.Name))
		return nil
	}
	fmt.Fprintf(c.term, "In %s you see: %s.\n", lang.Indef(holder.Name), decor.Things(content))
	return nil
}
