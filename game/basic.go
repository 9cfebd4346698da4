package game

import (
	"fmt"
	"slices"
	"strings"

	"github.com/rodaine/table"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/decor"
	"github.com/zond/mudkit/lang"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
)

func (c *Connection) basicCommands() commands {
	return []command{
		{
			names: m("l", "look"),
			f:     (*Connection).lookCommand,
		},
		{
			names: m("get", "grab"),
			f:     (*Connection).getCommand,
		},
		{
			names: m("put"),
			f:     (*Connection).putCommand,
		},
		{
			names: m("drop"),
			f:     (*Connection).dropCommand,
		},
		{
			names: m("give"),
			f:     (*Connection).giveCommand,
		},
		{
			names: m("place", "arrange"),
			f:     (*Connection).placeCommand,
		},
		{
			names: m("i", "inv", "inventory"),
			f: func(c *Connection, _ string) error {
				return c.inventory()
			},
		},
		{
			names: m("say"),
			f: func(c *Connection, s string) error {
				if s == "" {
					fmt.Fprintln(c.term, "Say what?")
					return nil
				}
				fmt.Fprintf(c.term, "You say, %q\n", s)
				return c.game.emit(c.game.locationOf(c.user.Object), fmt.Sprintf("%s says, %q", c.user.Name, s), c.user.Object)
			},
		},
	}
}

func (c *Connection) lookCommand(args string) error {
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	switch {
	case args == "":
		c.describeRoom(s)
		return nil
	case strings.HasPrefix(args, "in "):
		holder, err := c.search(s, strings.TrimPrefix(args, "in "), s.candidates(scopeAll))
		if err != nil || holder == nil {
			return err
		}
		if !holder.CanHold() || holder.Kind == structs.KindCharacter {
			fmt.Fprintln(c.term, "You can't look there.")
			return nil
		}
		return c.describeContent(holder)
	}
	holderPattern, pattern, found := splitAt(args, "'s ")
	if !found {
		pattern, holderPattern, found = splitAt(args, " in ")
	}
	if !found {
		target, err := c.search(s, args, s.candidates(scopeAll))
		if err != nil || target == nil {
			return err
		}
		if s.room != nil && target.Id == s.room.Id {
			c.describeRoom(s)
			return nil
		}
		return c.describeObject(target)
	}
	holder, err := c.search(s, holderPattern, s.candidates(scopeAll))
	if err != nil || holder == nil {
		return err
	}
	if holder.Kind == structs.KindCharacter && holder.Id != s.self.Id {
		// Only what others visibly wear can be looked at.
		visible, err := c.game.storage.GetObjects(c.visibleWorn(holder)...)
		if err != nil {
			return mudkit.WithStack(err)
		}
		target, err := c.search(s, pattern, visible)
		if err != nil || target == nil {
			return err
		}
		return c.describeObject(target)
	}
	content, err := c.game.storage.Content(holder)
	if err != nil {
		return mudkit.WithStack(err)
	}
	target, err := c.search(s, pattern, content)
	if err != nil || target == nil {
		return err
	}
	return c.describeObject(target)
}

// visibleWorn returns the IDs of what the character visibly wears.
func (c *Connection) visibleWorn(character *structs.Object) []string {
	ids, err := c.game.existing(character.Worn)
	if err != nil {
		return nil
	}
	worn, err := c.game.storage.GetObjects(ids...)
	if err != nil {
		return nil
	}
	result := []string{}
	for _, obj := range worn {
		if obj.Location == character.Id && obj.CoveredBy == "" {
			result = append(result, obj.Id)
		}
	}
	return result
}

func (c *Connection) getCommand(args string) error {
	if args == "" {
		fmt.Fprintln(c.term, "Get what?")
		return nil
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	pattern, holderPattern, fromHolder := splitAt(args, " from ")
	var holder *structs.Object
	candidates := s.nearby
	if fromHolder {
		if holder, err = c.search(s, holderPattern, s.candidates(scopeAll)); err != nil || holder == nil {
			return err
		}
		if holder.Kind != structs.KindContainer {
			fmt.Fprintln(c.term, "You can't get things from there.")
			return nil
		}
		if candidates, err = c.game.storage.Content(holder); err != nil {
			return mudkit.WithStack(err)
		}
	}
	obj, err := c.search(s, pattern, candidates)
	if err != nil || obj == nil {
		return err
	}
	if obj.Id == s.self.Id {
		fmt.Fprintln(c.term, "You can't get yourself.")
		return nil
	}
	if obj.Fixed || obj.Kind == structs.KindCharacter || obj.Kind == structs.KindRoom || (obj.Placed != "" && !c.canDecorate(s.self, s.room)) {
		fmt.Fprintln(c.term, "You can't get that.")
		return nil
	}
	if err := c.game.move(obj.Id, s.self.Id); err != nil {
		return mudkit.WithStack(err)
	}
	if holder != nil {
		return c.game.emit(s.self.Location, fmt.Sprintf("%s gets %s from %s.", s.self.Name, lang.Indef(obj.Name), lang.Indef(holder.Name)))
	}
	return c.game.emit(s.self.Location, fmt.Sprintf("%s picks up %s.", s.self.Name, lang.Indef(obj.Name)))
}

func (c *Connection) putCommand(args string) error {
	if args == "" {
		fmt.Fprintln(c.term, "Put down what?")
		return nil
	}
	syntax := "on"
	pattern, targetPattern, found := splitAt(args, " on ")
	if !found {
		syntax = "in"
		if pattern, targetPattern, found = splitAt(args, " in "); !found {
			fmt.Fprintln(c.term, "Put it where?")
			return nil
		}
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	obj, err := c.search(s, pattern, s.carried)
	if err != nil || obj == nil {
		return err
	}
	target, err := c.search(s, targetPattern, s.candidates(scopeAll))
	if err != nil || target == nil {
		return err
	}
	if target.Kind != structs.KindContainer {
		fmt.Fprintln(c.term, "You can't put things there.")
		return nil
	}
	if err := c.removeWorn(s, obj); err != nil {
		return err
	}
	if err := c.game.move(obj.Id, target.Id); err != nil {
		return mudkit.WithStack(err)
	}
	return c.game.emit(s.self.Location, fmt.Sprintf("%s puts %s %s %s.", s.self.Name, lang.Indef(obj.Name), syntax, lang.Indef(target.Name)))
}

// removeWorn takes obj off if self wears it, announcing it to the room.
func (c *Connection) removeWorn(s *surroundings, obj *structs.Object) error {
	if !s.wears(obj) {
		return nil
	}
	var message string
	if err := c.game.withWardrobe(s.self.Id, nil, func(w *wardrobe) error {
		garment, found := w.handler.Find(obj.Id)
		if !found {
			return nil
		}
		if err := w.handler.CanRemove(garment); err != nil {
			return err
		}
		var err error
		message, err = w.handler.Remove(garment, false)
		return err
	}); err != nil {
		return err
	}
	if message != "" {
		return c.game.emit(s.self.Location, message)
	}
	return nil
}

func (c *Connection) dropCommand(args string) error {
	if args == "" {
		fmt.Fprintln(c.term, "Drop what?")
		return nil
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if s.room == nil {
		fmt.Fprintln(c.term, "There is nowhere to drop it.")
		return nil
	}
	obj, err := c.search(s, args, s.carried)
	if err != nil || obj == nil {
		return err
	}
	if err := c.removeWorn(s, obj); err != nil {
		return err
	}
	if err := c.game.move(obj.Id, s.room.Id); err != nil {
		return mudkit.WithStack(err)
	}
	fmt.Fprintf(c.term, "You drop %s.\n", lang.Indef(obj.Name))
	return c.game.emit(s.room.Id, fmt.Sprintf("%s drops %s.", s.self.Name, lang.Indef(obj.Name)), s.self.Id)
}

func (c *Connection) giveCommand(args string) error {
	pattern, targetPattern, found := splitAt(args, " to ", "=")
	if !found || pattern == "" || targetPattern == "" {
		fmt.Fprintln(c.term, "Usage: give <object> to <target>")
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
	target, err := c.search(s, targetPattern, s.nearby)
	if err != nil || target == nil {
		return err
	}
	if target.Id == s.self.Id {
		fmt.Fprintf(c.term, "You keep %s to yourself.\n", obj.Name)
		return nil
	}
	if target.Kind != structs.KindCharacter {
		fmt.Fprintf(c.term, "You can't give things to %s.\n", lang.Indef(target.Name))
		return nil
	}
	if err := c.removeWorn(s, obj); err != nil {
		return err
	}
	if err := c.game.move(obj.Id, target.Id); err != nil {
		return mudkit.WithStack(err)
	}
	fmt.Fprintf(c.term, "You give %s to %s.\n", lang.Indef(obj.Name), target.Name)
	c.game.tell(target.Id, fmt.Sprintf("%s gives you %s.", s.self.Name, lang.Indef(obj.Name)))
	return nil
}

func (c *Connection) placeCommand(args string) error {
	pattern, positionText, _ := splitAt(args, "=")
	if pattern == "" {
		fmt.Fprintln(c.term, "Usage: place <obj> [= position]")
		return nil
	}
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	obj, err := c.search(s, pattern, s.candidates(scopeAll))
	if err != nil || obj == nil {
		return err
	}
	if obj.Kind != structs.KindDecor {
		fmt.Fprintln(c.term, "You can't decorate with that.")
		return nil
	}
	if !c.canDecorate(s.self, s.room) {
		fmt.Fprintln(c.term, "You can't decorate here.")
		return nil
	}
	position, err := decor.ParsePosition(positionText)
	if err != nil {
		return err
	}
	if obj.Location != s.room.Id {
		if err := c.removeWorn(s, obj); err != nil {
			return err
		}
		if err := c.game.move(obj.Id, s.room.Id); err != nil {
			return mudkit.WithStack(err)
		}
	}
	if err := c.game.storage.WithObjects([]string{obj.Id}, func(objs map[string]*structs.Object) error {
		if objs[obj.Id].Location != s.room.Id {
			return mudkit.WithStack(storage.ErrMoved)
		}
		objs[obj.Id].SetPlaced(position)
		return nil
	}); err != nil {
		return err
	}
	if err := c.game.updateDecor(s.room.Id); err != nil {
		return mudkit.WithStack(err)
	}
	fmt.Fprintf(c.term, "You place the %s %s.\n", obj.Name, position)
	return c.game.emit(s.room.Id, fmt.Sprintf("%s places %s %s.", s.self.Name, lang.Indef(obj.Name), position), s.self.Id)
}

func (c *Connection) inventory() error {
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	carried := structs.Objects{}
	worn := structs.Objects{}
	for _, obj := range s.carried {
		if s.wears(obj) {
			worn = append(worn, obj)
		} else {
			carried = append(carried, obj)
		}
	}
	// Worn items are listed in the order they were put on.
	slices.SortStableFunc(worn, func(a, b *structs.Object) int {
		return slices.Index(s.self.Worn, a.Id) - slices.Index(s.self.Worn, b.Id)
	})

	fmt.Fprintln(c.term, "You are carrying:")
	if len(carried) == 0 {
		fmt.Fprintln(c.term, " Nothing.")
	} else {
		counts := map[string]int{}
		names := []string{}
		for _, obj := range carried {
			if counts[obj.Name] == 0 {
				names = append(names, obj.Name)
			}
			counts[obj.Name]++
		}
		t := table.New("Item").WithWriter(c.term)
		for _, name := range names {
			t.AddRow(lang.Card(counts[name], name))
		}
		t.Print()
	}
	fmt.Fprintln(c.term, "You are wearing:")
	if len(worn) == 0 {
		fmt.Fprintln(c.term, " Nothing.")
	} else {
		t := table.New("Item", "Style").WithWriter(c.term)
		for _, obj := range worn {
			name := lang.Indef(obj.Name)
			if obj.CoveredBy != "" {
				name += " (hidden)"
			}
			t.AddRow(name, obj.WornStyle)
		}
		t.Print()
	}
	return nil
}
