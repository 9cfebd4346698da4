package relay

import (
	"context"
	"log"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/zond/mudkit"
)

// Message is something said in a Discord channel.
type Message struct {
	DiscordChannel string
	User           string
	Text           string
}

// Transport carries messages to and from Discord.
type Transport interface {
	Send(ctx context.Context, discordChannel string, text string) error
	// Listen makes the transport call f with every message not sent by the
	// transport itself.
	Listen(f func(Message))
	Close() error
}

type DiscordTransport struct {
	session *discordgo.Session
	mu      sync.RWMutex
	handler func(Message)
}

func NewDiscordTransport(token string) (*DiscordTransport, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	t := &DiscordTransport{session: session}
	session.AddHandler(t.onReady)
	session.AddHandler(t.onMessageCreate)
	if err := session.Open(); err != nil {
		return nil, mudkit.WithStack(err)
	}
	return t, nil
}

func (t *DiscordTransport) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Printf("Logged in to Discord as %s (ID: %s)", r.User.Username, r.User.ID)
}

func (t *DiscordTransport) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || (s.State.User != nil && m.Author.ID == s.State.User.ID) {
		return
	}
	name := m.Author.Username
	if m.Member != nil && m.Member.Nick != "" {
		name = m.Member.Nick
	} else if m.Author.GlobalName != "" {
		name = m.Author.GlobalName
	}
	t.mu.RLock()
	handler := t.handler
	t.mu.RUnlock()
	if handler != nil {
		handler(Message{
			DiscordChannel: m.ChannelID,
			User:           name,
			Text:           m.Content,
		})
	}
}

func (t *DiscordTransport) Listen(f func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = f
}

func (t *DiscordTransport) Send(ctx context.Context, discordChannel string, text string) error {
	_, err := t.session.ChannelMessageSend(discordChannel, text, discordgo.WithContext(ctx))
	return mudkit.WithStack(err)
}

func (t *DiscordTransport) Close() error {
	return mudkit.WithStack(t.session.Close())
}
