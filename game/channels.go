package game

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/storage"
	"golang.org/x/term"
)

// Channels carries chat between the terminals subscribed to named channels,
// and records everything said in the history.
type Channels struct {
	mu          sync.RWMutex
	subscribers map[string]map[*term.Terminal]struct{} // channel -> set of terminals
	history     *storage.History
	// historyLength returns how many messages to replay on join.
	historyLength func() int
	// published is called with everything said, after delivery.
	published func(channel string, sender string, text string)
}

// NewChannels creates channels recording to history. published may be nil.
func NewChannels(history *storage.History, historyLength func() int, published func(channel string, sender string, text string)) *Channels {
	return &Channels{
		subscribers:   map[string]map[*term.Terminal]struct{}{},
		history:       history,
		historyLength: historyLength,
		published:     published,
	}
}

func formatChat(channel string, sender string, text string) string {
	return fmt.Sprintf("[%s] %s: %s\n", channel, sender, text)
}

// Join subscribes t to channel and replays the recent history to it.
// Nil terminals are ignored.
func (c *Channels) Join(ctx context.Context, channel string, t *term.Terminal) error {
	if t == nil {
		return nil
	}
	c.mu.Lock()
	if c.subscribers[channel] == nil {
		c.subscribers[channel] = map[*term.Terminal]struct{}{}
	}
	c.subscribers[channel][t] = struct{}{}
	c.mu.Unlock()

	entries, err := c.history.Recent(ctx, channel, c.historyLength())
	if err != nil {
		return mudkit.WithStack(err)
	}
	for _, entry := range entries {
		if _, err := fmt.Fprintf(t, "[%s %s] %s: %s\n", channel, entry.Time().Format("15:04"), entry.Sender, entry.Message); err != nil {
			c.Leave(channel, t)
			return mudkit.WithStack(err)
		}
	}
	return nil
}

// Leave unsubscribes t from channel.
func (c *Channels) Leave(channel string, t *term.Terminal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leave(channel, t)
}

func (c *Channels) leave(channel string, t *term.Terminal) {
	if terms := c.subscribers[channel]; terms != nil {
		delete(terms, t)
		if len(terms) == 0 {
			delete(c.subscribers, channel)
		}
	}
}

// LeaveAll unsubscribes t from every channel.
func (c *Channels) LeaveAll(t *term.Terminal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for channel := range c.subscribers {
		c.leave(channel, t)
	}
}

func (c *Channels) IsJoined(channel string, t *term.Terminal) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, joined := c.subscribers[channel][t]
	return joined
}

// Joined returns the channels t is subscribed to, sorted.
func (c *Channels) Joined(t *term.Terminal) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := []string{}
	for channel, terms := range c.subscribers {
		if _, joined := terms[t]; joined {
			result = append(result, channel)
		}
	}
	sort.Strings(result)
	return result
}

// Publish records what sender said on channel and writes it to every
// subscriber. Failed terminals are unsubscribed.
//
// Writes happen without holding the lock, so a terminal may receive one
// more message after leaving if a Publish was already in progress.
func (c *Channels) Publish(ctx context.Context, channel string, sender string, text string) error {
	if err := c.history.Record(ctx, &storage.HistoryEntry{
		Channel: channel,
		Sender:  sender,
		Message: text,
	}); err != nil {
		return mudkit.WithStack(err)
	}

	c.mu.RLock()
	terms := c.subscribers[channel]
	list := make([]*term.Terminal, 0, len(terms))
	for t := range terms {
		list = append(list, t)
	}
	c.mu.RUnlock()

	line := []byte(formatChat(channel, sender, text))
	var failed []*term.Terminal
	for _, t := range list {
		if _, err := t.Write(line); err != nil {
			failed = append(failed, t)
		}
	}
	if len(failed) > 0 {
		c.mu.Lock()
		for _, t := range failed {
			c.leave(channel, t)
		}
		c.mu.Unlock()
	}

	if c.published != nil {
		c.published(channel, sender, text)
	}
	return nil
}
