package game

import (
	"fmt"
	"strings"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/lang"
)

func (c *Connection) channelCommands() commands {
	return []command{
		{
			names: m("join"),
			f: func(c *Connection, s string) error {
				if s == "" {
					fmt.Fprintln(c.term, "Usage: join <channel>")
					return nil
				}
				channel, err := normalizeChannel(s)
				if err != nil {
					return err
				}
				if c.game.channels.IsJoined(channel, c.term) {
					fmt.Fprintf(c.term, "You're already on %q.\n", channel)
					return nil
				}
				fmt.Fprintf(c.term, "You join %q.\n", channel)
				return mudkit.WithStack(c.game.channels.Join(c.ctx, channel, c.term))
			},
		},
		{
			names: m("leave"),
			f: func(c *Connection, s string) error {
				if s == "" {
					fmt.Fprintln(c.term, "Usage: leave <channel>")
					return nil
				}
				channel, err := normalizeChannel(s)
				if err != nil {
					return err
				}
				if !c.game.channels.IsJoined(channel, c.term) {
					fmt.Fprintf(c.term, "You're not on %q.\n", channel)
					return nil
				}
				c.game.channels.Leave(channel, c.term)
				fmt.Fprintf(c.term, "You leave %q.\n", channel)
				return nil
			},
		},
		{
			names: m("channels"),
			f: func(c *Connection, _ string) error {
				joined := c.game.channels.Joined(c.term)
				if len(joined) == 0 {
					fmt.Fprintln(c.term, "You're not on any channels.")
					return nil
				}
				fmt.Fprintf(c.term, "You're on %s.\n", lang.Enumerator{Pattern: "%q"}.Do(joined...))
				return nil
			},
		},
		{
			names: m("chat"),
			f: func(c *Connection, s string) error {
				name, text, _ := strings.Cut(s, " ")
				if text = strings.TrimSpace(text); name == "" || text == "" {
					fmt.Fprintln(c.term, "Usage: chat <channel> <message>")
					return nil
				}
				channel, err := normalizeChannel(name)
				if err != nil {
					return err
				}
				if !c.game.channels.IsJoined(channel, c.term) {
					fmt.Fprintf(c.term, "You're not on %q.\n", channel)
					return nil
				}
				return mudkit.WithStack(c.game.channels.Publish(c.ctx, channel, c.user.Name, text))
			},
		},
	}
}
