package game

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/pkg/errors"
	"github.com/rodaine/table"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/decor"
	"github.com/zond/mudkit/features"
	"github.com/zond/mudkit/growth"
	"github.com/zond/mudkit/relay"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"

	goccy "github.com/goccy/go-json"
)

// wizTarget finds the object pattern names anywhere near the wizard, or by
// "#id".
func (c *Connection) wizTarget(pattern string) (*surroundings, *structs.Object, error) {
	s, err := c.game.surroundingsOf(c.user.Object)
	if err != nil {
		return nil, nil, mudkit.WithStack(err)
	}
	obj, err := c.search(s, pattern, s.candidates(scopeAll))
	return s, obj, err
}

// isPlayer reports whether obj is the character of its owner.
func (g *Game) isPlayer(obj *structs.Object) (bool, error) {
	if obj.Kind != structs.KindCharacter || obj.Owner == "" {
		return false, nil
	}
	user, err := g.storage.LoadUser(obj.Owner)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, mudkit.WithStack(err)
	}
	return user.Object == obj.Id, nil
}

// update stores the changes f makes to the object with id.
func (g *Game) update(id string, f func(obj *structs.Object) error) error {
	return g.storage.WithObjects([]string{id}, func(objs map[string]*structs.Object) error {
		return f(objs[id])
	})
}

func (c *Connection) setWizard(s string, wizard bool) error {
	verb := "grant"
	if !wizard {
		verb = "revoke"
	}
	if !c.user.Owner {
		fmt.Fprintf(c.term, "Only owners can %s wizard privileges.\n", verb)
		return nil
	}
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(parts) != 1 {
		if wizard {
			fmt.Fprintln(c.term, "usage: /addwiz <username>")
		} else {
			fmt.Fprintln(c.term, "usage: /delwiz <username>")
		}
		return nil
	}
	user, err := c.game.storage.LoadUser(parts[0])
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(c.term, "No user %q.\n", parts[0])
		return nil
	} else if err != nil {
		return mudkit.WithStack(err)
	}
	user.Wizard = wizard
	if err := c.game.storage.StoreUser(user); err != nil {
		return mudkit.WithStack(err)
	}
	if wizard {
		fmt.Fprintf(c.term, "Granted wizard privileges to %q\n", user.Name)
	} else {
		fmt.Fprintf(c.term, "Revoked wizard privileges from %q\n", user.Name)
	}
	return nil
}

func (c *Connection) wizCommands() commands {
	return []command{
		{
			names: m("/addwiz"),
			f: func(c *Connection, s string) error {
				return c.setWizard(s, true)
			},
		},
		{
			names: m("/delwiz"),
			f: func(c *Connection, s string) error {
				return c.setWizard(s, false)
			},
		},
		{
			names: m("/create"),
			f:     (*Connection).createCommand,
		},
		{
			names: m("/inspect"),
			f: c.identifyingCommand(defaultSelf, scopeAll, "", func(c *Connection, _ *surroundings, target *structs.Object, _ string) error {
				js, err := goccy.MarshalIndent(target, "", "  ")
				if err != nil {
					return mudkit.WithStack(err)
				}
				fmt.Fprintln(c.term, string(js))
				return nil
			}),
		},
		{
			names: m("/desc"),
			f: c.identifyingCommand(defaultNone, scopeAll, "usage: /desc <target> = <description>", func(c *Connection, _ *surroundings, target *structs.Object, rhs string) error {
				if err := c.game.update(target.Id, func(obj *structs.Object) error {
					obj.SetDesc(rhs)
					return nil
				}); err != nil {
					return mudkit.WithStack(err)
				}
				fmt.Fprintf(c.term, "Described #%s\n", target.Id)
				return nil
			}),
		},
		{
			names: m("/name"),
			f: c.identifyingCommand(defaultNone, scopeAll, "usage: /name <target> = <name>[, <alias>...]", func(c *Connection, _ *surroundings, target *structs.Object, rhs string) error {
				names := []string{}
				for _, name := range strings.Split(rhs, ",") {
					if name = strings.TrimSpace(name); name != "" {
						names = append(names, name)
					}
				}
				if len(names) == 0 {
					fmt.Fprintln(c.term, "usage: /name <target> = <name>[, <alias>...]")
					return nil
				}
				if err := c.game.update(target.Id, func(obj *structs.Object) error {
					obj.SetName(names[0])
					obj.Aliases = names[1:]
					return nil
				}); err != nil {
					return mudkit.WithStack(err)
				}
				fmt.Fprintf(c.term, "Named #%s %q\n", target.Id, names[0])
				return nil
			}),
		},
		{
			names: m("/kind"),
			f: func(c *Connection, s string) error {
				parts, err := shellwords.SplitPosix(s)
				if err != nil {
					return mudkit.WithStack(err)
				}
				if len(parts) != 2 || !slices.Contains(structs.Kinds, structs.Kind(parts[1])) {
					fmt.Fprintf(c.term, "usage: /kind <target> <%s>\n", kindList())
					return nil
				}
				_, target, err := c.wizTarget(parts[0])
				if err != nil || target == nil {
					return err
				}
				return mudkit.WithStack(c.game.update(target.Id, func(obj *structs.Object) error {
					obj.Kind = structs.Kind(parts[1])
					return nil
				}))
			},
		},
		{
			names: m("/fixed"),
			f: func(c *Connection, s string) error {
				parts, err := shellwords.SplitPosix(s)
				if err != nil {
					return mudkit.WithStack(err)
				}
				if len(parts) != 2 {
					fmt.Fprintln(c.term, "usage: /fixed <target> <true|false>")
					return nil
				}
				fixed, err := strconv.ParseBool(parts[1])
				if err != nil {
					fmt.Fprintln(c.term, "usage: /fixed <target> <true|false>")
					return nil
				}
				_, target, err := c.wizTarget(parts[0])
				if err != nil || target == nil {
					return err
				}
				return mudkit.WithStack(c.game.update(target.Id, func(obj *structs.Object) error {
					obj.Fixed = fixed
					return nil
				}))
			},
		},
		{
			names: m("/tag"),
			f: func(c *Connection, s string) error {
				parts, err := shellwords.SplitPosix(s)
				if err != nil {
					return mudkit.WithStack(err)
				}
				if len(parts) < 2 || len(parts) > 3 {
					fmt.Fprintln(c.term, "usage: /tag <target> <category> [value]")
					return nil
				}
				_, target, err := c.wizTarget(parts[0])
				if err != nil || target == nil {
					return err
				}
				value := ""
				if len(parts) == 3 {
					value = parts[2]
				}
				if category := c.game.clothing.TagCategory; parts[1] == category && value != "" && c.game.clothing.TypeOf(tagged{category, value}) == clothing.NoType {
					fmt.Fprintf(c.term, "%q isn't a known clothing type.\n", value)
					return nil
				}
				return mudkit.WithStack(c.game.update(target.Id, func(obj *structs.Object) error {
					obj.SetTag(parts[1], value)
					return nil
				}))
			},
		},
		{
			names: m("/move"),
			f: c.identifyingCommand(defaultNone, scopeAll, "usage: /move <target> [= <destination>]", func(c *Connection, s *surroundings, target *structs.Object, rhs string) error {
				dest := s.room
				if rhs != "" {
					var err error
					if dest, err = c.search(s, rhs, s.candidates(scopeAll)); err != nil || dest == nil {
						return err
					}
				}
				if dest == nil {
					fmt.Fprintln(c.term, "Can't move things outside the known universe.")
					return nil
				}
				if !dest.CanHold() {
					fmt.Fprintf(c.term, "%s can't hold anything.\n", dest.Name)
					return nil
				}
				if err := c.game.move(target.Id, dest.Id); err != nil {
					return err
				}
				if target.Id == s.self.Id {
					return c.look()
				}
				return nil
			}),
		},
		{
			names: m("/goto"),
			f: c.identifyingCommand(defaultNone, scopeAll, "usage: /goto <room>", func(c *Connection, s *surroundings, target *structs.Object, _ string) error {
				if target.Kind != structs.KindRoom {
					fmt.Fprintf(c.term, "%s isn't a room.\n", target.Name)
					return nil
				}
				from := s.self.Location
				if err := c.game.move(s.self.Id, target.Id); err != nil {
					return err
				}
				if err := c.game.emit(from, fmt.Sprintf("%s disappears.", s.self.Name)); err != nil {
					return mudkit.WithStack(err)
				}
				if err := c.game.emit(target.Id, fmt.Sprintf("%s appears.", s.self.Name), s.self.Id); err != nil {
					return mudkit.WithStack(err)
				}
				return c.look()
			}),
		},
		{
			names: m("/remove"),
			f: c.identifyingCommand(defaultNone, scopeAll, "usage: /remove <target>", func(c *Connection, s *surroundings, target *structs.Object, _ string) error {
				switch {
				case target.Id == s.self.Location:
					fmt.Fprintln(c.term, "Can't remove current location.")
					return nil
				case target.Id == s.self.Id:
					fmt.Fprintln(c.term, "Can't remove yourself.")
					return nil
				case target.Id == genesisID:
					fmt.Fprintln(c.term, "Can't remove genesis.")
					return nil
				}
				if player, err := c.game.isPlayer(target); err != nil {
					return mudkit.WithStack(err)
				} else if player {
					fmt.Fprintln(c.term, "Can't remove the character of a player.")
					return nil
				}
				if target.Location != "" {
					if holder, err := c.game.storage.GetObject(target.Location); err != nil {
						return mudkit.WithStack(err)
					} else if slices.Contains(holder.Worn, target.Id) {
						if err := c.game.withWardrobe(holder.Id, nil, func(w *wardrobe) error {
							garment, found := w.handler.Find(target.Id)
							if !found {
								return nil
							}
							_, err := w.handler.Remove(garment, true)
							return err
						}); err != nil {
							return err
						}
					}
				}
				if err := c.game.storage.RemoveObject(target.Id); err != nil {
					return err
				}
				if target.Placed != "" {
					if err := c.game.updateDecor(target.Location); err != nil {
						return mudkit.WithStack(err)
					}
				}
				fmt.Fprintf(c.term, "Removed #%s\n", target.Id)
				return nil
			}),
		},
		{
			names: m("/spawn"),
			f: func(c *Connection, s string) error {
				if s == "" {
					fmt.Fprintf(c.term, "Spawn is #%s\n", c.game.getSpawnLocation())
					return nil
				}
				_, target, err := c.wizTarget(s)
				if err != nil || target == nil {
					return err
				}
				if target.Kind != structs.KindRoom {
					fmt.Fprintf(c.term, "%s isn't a room.\n", target.Name)
					return nil
				}
				from := c.game.config.GetSpawn()
				c.game.config.SetSpawn(target.Id)
				if err := c.game.storage.StoreServerConfig(c.game.config); err != nil {
					return mudkit.WithStack(err)
				}
				c.game.storage.AuditLog(c.ctx, "SPAWN_CHANGE", storage.AuditSpawnChange{
					Caller: storage.UserRef(c.user),
					From:   from,
					To:     target.Id,
				})
				fmt.Fprintf(c.term, "Spawn set to #%s\n", target.Id)
				return nil
			},
		},
		{
			names: m("/config"),
			f:     (*Connection).configCommand,
		},
		{
			names: m("/decorators"),
			f:     (*Connection).decoratorsCommand,
		},
		{
			names: m("/grow"),
			f:     (*Connection).growCommand,
		},
		{
			names: m("/feature"),
			f:     (*Connection).featureCommand,
		},
		{
			names: m("/channel"),
			f:     (*Connection).channelCommand,
		},
		{
			names: m("discord2chan"),
			f: c.withRelay(func(c *Connection, r *relay.Relay, s string) error {
				if s == "" {
					fmt.Fprintln(c.term, r.Describe())
					return nil
				}
				channel, discordChannel, botName, err := relay.ParseLink(s)
				if err != nil {
					return err
				}
				if channel, err = normalizeChannel(channel); err != nil {
					return err
				}
				bot, err := r.Add(channel, discordChannel, botName)
				if err != nil {
					return err
				}
				c.game.storage.AuditLog(c.ctx, "RELAY_CREATE", storage.AuditRelayCreate{
					Caller:         storage.UserRef(c.user),
					Bot:            bot.Name,
					Channel:        bot.Channel,
					DiscordChannel: bot.DiscordChannel,
				})
				fmt.Fprintf(c.term, "Discord connection created: %s (%s to %s).\n", bot.Name, bot.Channel, bot.DiscordChannel)
				return nil
			}),
		},
		{
			names: m("discord2chan/list"),
			f: c.withRelay(func(c *Connection, r *relay.Relay, _ string) error {
				bots := r.List()
				if len(bots) == 0 {
					fmt.Fprintln(c.term, r.Describe())
					return nil
				}
				t := table.New("Bot", "Channel", "Discord channel").WithWriter(c.term)
				for _, bot := range bots {
					t.AddRow(bot.Name, bot.Channel, bot.DiscordChannel)
				}
				t.Print()
				return nil
			}),
		},
		{
			names: m("discord2chan/delete"),
			f: c.withRelay(func(c *Connection, r *relay.Relay, s string) error {
				if s == "" {
					return relay.ErrUsage
				}
				name := r.NormalizeBotName(s)
				if err := r.Remove(name); err != nil {
					return err
				}
				c.game.storage.AuditLog(c.ctx, "RELAY_DELETE", storage.AuditRelayDelete{
					Caller: storage.UserRef(c.user),
					Bot:    name,
				})
				fmt.Fprintf(c.term, "Discord connection %s removed.\n", name)
				return nil
			}),
		},
	}
}

// tagged is a bare tag holder, for checking tag values against the clothing
// types.
type tagged [2]string

func (t tagged) Tag(category string) string {
	if category == t[0] {
		return t[1]
	}
	return ""
}

func kindList() string {
	kinds := make([]string, len(structs.Kinds))
	for i, kind := range structs.Kinds {
		kinds[i] = string(kind)
	}
	return strings.Join(kinds, "|")
}

func (c *Connection) withRelay(f func(c *Connection, r *relay.Relay, s string) error) func(*Connection, string) error {
	return func(c *Connection, s string) error {
		r := c.game.relay.Load()
		if r == nil {
			fmt.Fprintln(c.term, "The Discord relay isn't enabled.")
			return nil
		}
		return f(c, r, s)
	}
}

func (c *Connection) createCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(parts) < 2 || !slices.Contains(structs.Kinds, structs.Kind(parts[0])) {
		fmt.Fprintf(c.term, "usage: /create <%s> <name>\n", kindList())
		return nil
	}
	self, err := c.game.storage.GetObject(c.user.Object)
	if err != nil {
		return mudkit.WithStack(err)
	}
	obj := structs.MakeObject(structs.Kind(parts[0]), strings.Join(parts[1:], " "))
	obj.Owner = c.user.Name
	switch obj.Kind {
	case structs.KindRoom:
		obj.Decorators = map[string]bool{}
	case structs.KindCharacter:
		obj.Location = self.Location
	default:
		obj.Location = self.Id
	}
	if err := c.game.storage.CreateObject(obj); err != nil {
		return mudkit.WithStack(err)
	}
	fmt.Fprintf(c.term, "Created #%s\n", obj.Id)
	return nil
}

func (c *Connection) configCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	config := c.game.config
	switch {
	case len(parts) == 0:
		t := table.New("Setting", "Value").WithWriter(c.term)
		t.AddRow("spawn", config.GetSpawn())
		t.AddRow("growth", config.GetGrowthInterval())
		t.AddRow("history", config.GetHistoryLength())
		t.Print()
		return nil
	case len(parts) == 2 && parts[0] == "growth":
		d, err := time.ParseDuration(parts[1])
		if err != nil || d < 0 {
			fmt.Fprintf(c.term, "Invalid duration %q.\n", parts[1])
			return nil
		}
		config.SetGrowthInterval(d)
	case len(parts) == 2 && parts[0] == "history":
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			fmt.Fprintf(c.term, "Invalid history length %q.\n", parts[1])
			return nil
		}
		config.SetHistoryLength(n)
	default:
		fmt.Fprintln(c.term, "usage: /config [growth <duration>|history <messages>]")
		return nil
	}
	return mudkit.WithStack(c.game.storage.StoreServerConfig(config))
}

func (c *Connection) decoratorsCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	usage := func() error {
		fmt.Fprintf(c.term, "usage: /decorators <room> [add|remove <username>|%s]\n", decor.Anyone)
		return nil
	}
	if len(parts) != 1 && len(parts) != 3 {
		return usage()
	}
	_, room, err := c.wizTarget(parts[0])
	if err != nil || room == nil {
		return err
	}
	if room.Kind != structs.KindRoom {
		fmt.Fprintf(c.term, "%s isn't a room.\n", room.Name)
		return nil
	}
	if len(parts) == 3 {
		if parts[1] != "add" && parts[1] != "remove" {
			return usage()
		}
		if err := c.game.update(room.Id, func(obj *structs.Object) error {
			if obj.Decorators == nil {
				obj.Decorators = map[string]bool{}
			}
			if parts[1] == "add" {
				obj.Decorators[parts[2]] = true
			} else {
				delete(obj.Decorators, parts[2])
			}
			room = obj
			return nil
		}); err != nil {
			return mudkit.WithStack(err)
		}
	}
	names := []string{}
	for name := range room.Decorators {
		names = append(names, name)
	}
	slices.Sort(names)
	fmt.Fprintf(c.term, "Owner: %q, decorators: %q\n", room.Owner, names)
	return nil
}

// parseStage parses "<name> <age> [name=...] [desc=...] [attr:<key>=<value>]
// [hook:<name>=<arg>,...]".
func parseStage(parts []string) (growth.Stage, error) {
	if len(parts) < 2 {
		return growth.Stage{}, errors.New("missing name or age")
	}
	age, err := time.ParseDuration(parts[1])
	if err != nil {
		return growth.Stage{}, errors.Wrapf(err, "age %q", parts[1])
	}
	stage := growth.Stage{Name: parts[0], Age: age}
	for _, part := range parts[2:] {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return growth.Stage{}, errors.Errorf("%q isn't key=value", part)
		}
		switch {
		case key == "name":
			stage.NewName = value
		case key == "desc":
			stage.Desc = value
		case strings.HasPrefix(key, "attr:"):
			if stage.Attributes == nil {
				stage.Attributes = map[string]string{}
			}
			stage.Attributes[strings.TrimPrefix(key, "attr:")] = value
		case strings.HasPrefix(key, "hook:"):
			if stage.Hooks == nil {
				stage.Hooks = map[string][]string{}
			}
			args := []string{}
			if value != "" {
				args = strings.Split(value, ",")
			}
			stage.Hooks[strings.TrimPrefix(key, "hook:")] = args
		default:
			return growth.Stage{}, errors.Errorf("unknown stage setting %q", key)
		}
	}
	return stage, nil
}

const growUsage = `usage: /grow <target> list
       /grow <target> add|replace <stage> <age> [name=<name>] [desc=<desc>] [attr:<key>=<value>] [hook:<hook>=<arg>,...]
       /grow <target> remove <stage>
       /grow <target> force`

func (c *Connection) growCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(parts) < 2 {
		fmt.Fprintln(c.term, growUsage)
		return nil
	}
	_, target, err := c.wizTarget(parts[0])
	if err != nil || target == nil {
		return err
	}
	switch parts[1] {
	case "list":
		if target.Growth == nil || len(target.Growth.Stages) == 0 {
			fmt.Fprintf(c.term, "%s doesn't grow.\n", target.Name)
			return nil
		}
		status := target.Growth.Status
		t := table.New("", "Stage", "Age", "Name", "Description").WithWriter(c.term)
		for _, stage := range target.Growth.Stages {
			current := ""
			if stage.Name == status.Stage {
				current = "*"
			}
			t.AddRow(current, stage.Name, stage.Age, stage.NewName, stage.Desc)
		}
		t.Print()
		fmt.Fprintf(c.term, "Age %v, next stage at %v\n", status.Age.Round(time.Second), status.NextAge)
		return nil
	case "add", "replace":
		stage, err := parseStage(parts[2:])
		if err != nil {
			fmt.Fprintf(c.term, "%v\n%s\n", err, growUsage)
			return nil
		}
		added := false
		if err := c.game.withGrowth(target.Id, true, func(_ *structs.Object, h *growth.Handler) error {
			var err error
			added, err = h.Add(stage, parts[1] == "replace")
			return err
		}); err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(c.term, "Stage %q already exists, use replace.\n", stage.Name)
			return nil
		}
		fmt.Fprintf(c.term, "Stage %q added to #%s\n", stage.Name, target.Id)
		return nil
	case "remove":
		if len(parts) != 3 {
			fmt.Fprintln(c.term, growUsage)
			return nil
		}
		removed := false
		if err := c.game.withGrowth(target.Id, false, func(_ *structs.Object, h *growth.Handler) error {
			var err error
			removed, err = h.Remove(parts[2])
			return err
		}); err != nil {
			return err
		}
		if !removed {
			fmt.Fprintf(c.term, "No stage %q.\n", parts[2])
			return nil
		}
		fmt.Fprintf(c.term, "Stage %q removed from #%s\n", parts[2], target.Id)
		return nil
	case "force":
		return c.game.grow(target.Id, true)
	}
	fmt.Fprintln(c.term, growUsage)
	return nil
}

const featureUsage = `usage: /feature <target> list
       /feature <target> add|set|soft|merge|softmerge <feature> <value>...
       /feature <target> remove <feature>
       /feature <target> reset [<feature>...]
       /feature <target> clear`

func (c *Connection) featureCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(parts) < 2 {
		fmt.Fprintln(c.term, featureUsage)
		return nil
	}
	_, target, err := c.wizTarget(parts[0])
	if err != nil || target == nil {
		return err
	}
	op, args := parts[1], parts[2:]
	if op == "list" {
		if target.Features == nil || len(target.Features.Order) == 0 {
			fmt.Fprintf(c.term, "%s has no features.\n", target.Name)
			return nil
		}
		t := table.New("Feature", "Description", "Keys").WithWriter(c.term)
		for _, name := range target.Features.All() {
			desc, _ := target.Features.Get(name)
			t.AddRow(name, desc, strings.Join(target.Features.Options(name), ","))
		}
		t.Print()
		return nil
	}
	return mudkit.WithStack(c.game.update(target.Id, func(obj *structs.Object) error {
		if obj.Features == nil {
			obj.Features = features.New()
		}
		set := obj.Features
		values := func() map[string][]string {
			return map[string][]string{features.ValueKey: args[1:]}
		}
		switch {
		case op == "clear" && len(args) == 0:
			set.Clear()
		case op == "reset":
			set.Reset(args...)
		case op == "remove" && len(args) == 1:
			if !set.Remove(args[0]) {
				return features.Error(fmt.Sprintf("Feature %q does not exist on this object.", args[0]))
			}
		case len(args) < 2:
			fmt.Fprintln(c.term, featureUsage)
			return nil
		case op == "add":
			return set.Add(args[0], features.Feature{Values: values()}, false)
		case op == "set", op == "soft":
			return set.Set(args[0], op == "soft", values())
		case op == "merge", op == "softmerge":
			return set.Merge(args[0], op == "softmerge", values())
		default:
			fmt.Fprintln(c.term, featureUsage)
			return nil
		}
		return nil
	}))
}

func (c *Connection) channelCommand(s string) error {
	parts, err := shellwords.SplitPosix(s)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if len(parts) < 2 {
		fmt.Fprintln(c.term, "usage: /channel history <channel> [messages] | /channel forget <channel>")
		return nil
	}
	channel, err := normalizeChannel(parts[1])
	if err != nil {
		return err
	}
	switch parts[0] {
	case "history":
		n := c.game.config.GetHistoryLength()
		if len(parts) > 2 {
			if n, err = strconv.Atoi(parts[2]); err != nil || n <= 0 {
				fmt.Fprintf(c.term, "Invalid message count %q.\n", parts[2])
				return nil
			}
		}
		entries, err := c.game.storage.History().Recent(c.ctx, channel, n)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if len(entries) == 0 {
			fmt.Fprintf(c.term, "Nothing said on %q.\n", channel)
			return nil
		}
		t := table.New("Time", "Sender", "Message").WithWriter(c.term)
		for _, entry := range entries {
			t.AddRow(entry.Time().Format(time.DateTime), entry.Sender, entry.Message)
		}
		t.Print()
	case "forget":
		if err := c.game.storage.History().Forget(c.ctx, channel); err != nil {
			return mudkit.WithStack(err)
		}
		fmt.Fprintf(c.term, "Forgot the history of %q.\n", channel)
	default:
		fmt.Fprintln(c.term, "usage: /channel history <channel> [messages] | /channel forget <channel>")
	}
	return nil
}
