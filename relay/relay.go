// Package relay links game channels with Discord channels through named bots.
package relay

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/structs"
	"golang.org/x/time/rate"
)

// Error is a problem with what the user asked for, meant for the user.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrUsage     Error = "Usage: discord2chan[/switches] <channel> = <discord channel ID>[,<bot name>]"
	ErrDuplicate Error = "There is already a bot sending to that channel."
	ErrNoBot     Error = "Discord connection/bot could not be removed, does it exist?"
)

func invalidChannelError(id string) Error {
	return Error(fmt.Sprintf("Discord channel ID '%s' is not valid.", id))
}

type BotStore interface {
	RelayBots() ([]*structs.RelayBot, error)
	SetRelayBot(*structs.RelayBot) error
	DelRelayBot(name string) error
}

// Channels delivers messages from Discord to game channels.
type Channels interface {
	Publish(channel string, sender string, text string) error
}

type outgoing struct {
	discordChannel string
	text           string
}

type Relay struct {
	config    *Config
	transport Transport
	store     BotStore
	channels  Channels
	limiter   *rate.Limiter
	outbox    chan outgoing
	cancel    context.CancelFunc
	done      chan struct{}

	mu   sync.RWMutex
	bots map[string]*structs.RelayBot
}

// New loads the stored bots and starts relaying through transport until
// Close is called.
func New(config *Config, transport Transport, store BotStore, channels Channels) (*Relay, error) {
	bots, err := store.RelayBots()
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Relay{
		config:    config,
		transport: transport,
		store:     store,
		channels:  channels,
		limiter:   rate.NewLimiter(rate.Limit(config.Rate), max(config.Burst, 1)),
		outbox:    make(chan outgoing, max(config.OutboxSize, 1)),
		cancel:    cancel,
		done:      make(chan struct{}),
		bots:      map[string]*structs.RelayBot{},
	}
	for _, bot := range bots {
		r.bots[bot.Name] = bot
	}
	transport.Listen(r.fromDiscord)
	go r.run(ctx)
	return r, nil
}

func (r *Relay) run(ctx context.Context) {
	defer close(r.done)
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-r.outbox:
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			if err := r.transport.Send(ctx, out.discordChannel, out.text); err != nil {
				log.Printf("Relaying to Discord channel %s: %v", out.discordChannel, err)
			}
		}
	}
}

// Close stops relaying, dropping unsent messages.
func (r *Relay) Close() error {
	r.cancel()
	<-r.done
	return r.transport.Close()
}

// NormalizeBotName adds the bot prefix to name unless already present.
func (r *Relay) NormalizeBotName(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, r.config.BotPrefix) {
		return name
	}
	return r.config.BotPrefix + name
}

// ParseLink parses "<channel> = <discord channel ID>[,<bot name>]". The bot
// is named after the channel unless given.
func ParseLink(args string) (channel string, discordChannel string, bot string, err error) {
	lhs, rhs, found := strings.Cut(args, "=")
	channel = strings.TrimSpace(lhs)
	rhs = strings.TrimSpace(rhs)
	if !found || channel == "" || rhs == "" {
		return "", "", "", ErrUsage
	}
	discordChannel, bot, _ = strings.Cut(rhs, ",")
	discordChannel = strings.TrimSpace(discordChannel)
	if bot = strings.TrimSpace(bot); bot == "" {
		bot = channel
	}
	if _, err := strconv.ParseUint(discordChannel, 10, 64); err != nil {
		return "", "", "", invalidChannelError(discordChannel)
	}
	return channel, discordChannel, bot, nil
}

// Add links channel with discordChannel through the bot botName, replacing
// any previous link of that bot.
func (r *Relay) Add(channel string, discordChannel string, botName string) (*structs.RelayBot, error) {
	if _, err := strconv.ParseUint(discordChannel, 10, 64); err != nil {
		return nil, invalidChannelError(discordChannel)
	}
	bot := &structs.RelayBot{
		Name:           r.NormalizeBotName(botName),
		Channel:        channel,
		DiscordChannel: discordChannel,
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.bots {
		if other.Name != bot.Name && other.DiscordChannel == discordChannel {
			return nil, ErrDuplicate
		}
	}
	if err := r.store.SetRelayBot(bot); err != nil {
		return nil, mudkit.WithStack(err)
	}
	r.bots[bot.Name] = bot
	return bot, nil
}

func (r *Relay) Remove(botName string) error {
	name := r.NormalizeBotName(botName)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.bots[name]; !found {
		return ErrNoBot
	}
	if err := r.store.DelRelayBot(name); err != nil {
		return mudkit.WithStack(err)
	}
	delete(r.bots, name)
	return nil
}

// List returns the bots sorted by name.
func (r *Relay) List() []*structs.RelayBot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*structs.RelayBot, 0, len(r.bots))
	for _, bot := range r.bots {
		result = append(result, bot)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func (r *Relay) Describe() string {
	bots := r.List()
	if len(bots) == 0 {
		return "There are no discord relays active."
	}
	lines := make([]string, len(bots))
	for i, bot := range bots {
		lines[i] = fmt.Sprintf("%s (%s to Discord)", bot.Name, bot.Channel)
	}
	return strings.Join(lines, "\n")
}

// ToDiscord queues what sender said on channel for every bot linked to it,
// except when the sender is the bot itself. Messages are dropped when the
// outbox is full.
func (r *Relay) ToDiscord(channel string, sender string, text string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, bot := range r.bots {
		if bot.Channel != channel || bot.Name == sender {
			continue
		}
		select {
		case r.outbox <- outgoing{discordChannel: bot.DiscordChannel, text: format(r.config.ToDiscord, sender, text)}:
		default:
			log.Printf("Relay outbox full, dropping message from %q to %s", sender, bot.DiscordChannel)
		}
	}
}

func (r *Relay) fromDiscord(msg Message) {
	r.mu.RLock()
	targets := []*structs.RelayBot{}
	for _, bot := range r.bots {
		if bot.DiscordChannel == msg.DiscordChannel {
			targets = append(targets, bot)
		}
	}
	r.mu.RUnlock()
	for _, bot := range targets {
		if err := r.channels.Publish(bot.Channel, bot.Name, format(r.config.ToGame, msg.User, msg.Text)); err != nil {
			log.Printf("Relaying from Discord to %q: %v", bot.Channel, err)
		}
	}
}
