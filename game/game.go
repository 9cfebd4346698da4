package game

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/decor"
	"github.com/zond/mudkit/growth"
	"github.com/zond/mudkit/relay"
	"github.com/zond/mudkit/storage"
	"github.com/zond/mudkit/structs"
	"golang.org/x/term"
)

const (
	genesisID = "genesis"
)

// Options configures a Game. Zero values give the defaults.
type Options struct {
	// Clothing holds the clothing rules, nil means clothing.DefaultConfig().
	Clothing *clothing.Config
	// GrowthHooks are added to the built in growth hooks, replacing those
	// with the same name.
	GrowthHooks map[string]growth.Hook
	// LoginAttemptInterval is how long a user must wait after a failed login.
	LoginAttemptInterval time.Duration
}

type Game struct {
	storage              *storage.Storage
	config               *structs.ServerConfig
	clothing             *clothing.Config
	growthHooks          map[string]growth.Hook
	channels             *Channels
	connectionByObjectID *mudkit.SyncMap[string, *Connection]
	loginRateLimiter     *loginRateLimiter
	relay                atomic.Pointer[relay.Relay]
	done                 chan struct{}
}

// New creates the genesis room if missing and starts handling scheduled
// events until ctx is cancelled or the storage is closed.
func New(ctx context.Context, s *storage.Storage, options Options) (*Game, error) {
	config := structs.NewServerConfig()
	if err := s.LoadServerConfig(config); err != nil {
		return nil, mudkit.WithStack(err)
	}
	if _, err := s.EnsureObject(&structs.Object{
		Id:         genesisID,
		Kind:       structs.KindRoom,
		Name:       "Genesis",
		Desc:       "A featureless void, waiting to be shaped.",
		Content:    map[string]bool{},
		Decorators: map[string]bool{decor.Anyone: true},
	}); err != nil {
		return nil, mudkit.WithStack(err)
	}
	if options.Clothing == nil {
		options.Clothing = clothing.DefaultConfig()
	}
	if options.LoginAttemptInterval == 0 {
		options.LoginAttemptInterval = loginAttemptInterval
	}
	g := &Game{
		storage:              s,
		config:               config,
		clothing:             options.Clothing,
		connectionByObjectID: mudkit.NewSyncMap[string, *Connection](),
		loginRateLimiter:     newLoginRateLimiter(options.LoginAttemptInterval),
		done:                 make(chan struct{}),
	}
	g.growthHooks = builtinGrowthHooks()
	for name, hook := range options.GrowthHooks {
		g.growthHooks[name] = hook
	}
	g.channels = NewChannels(s.History(), config.GetHistoryLength, g.toDiscord)
	go func() {
		defer close(g.done)
		if err := s.Queue().Start(ctx, g.handleEvent); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Event queue stopped: %v", err)
			log.Println(mudkit.StackTrace(err))
		}
	}()
	return g, nil
}

// Done is closed when the game stops handling events.
func (g *Game) Done() <-chan struct{} {
	return g.done
}

// SetRelay makes channel messages go to Discord through r.
func (g *Game) SetRelay(r *relay.Relay) {
	g.relay.Store(r)
}

func (g *Game) toDiscord(channel string, sender string, text string) {
	if r := g.relay.Load(); r != nil {
		r.ToDiscord(channel, sender, text)
	}
}

// Publish says text on channel as sender, for messages arriving from Discord.
func (g *Game) Publish(channel string, sender string, text string) error {
	return g.channels.Publish(context.Background(), channel, sender, text)
}

func (g *Game) HandleSession(sess ssh.Session) {
	c := &Connection{
		game: g,
		term: term.NewTerminal(sess, "> "),
		sess: sess,
		ctx:  sess.Context(),
	}
	if err := c.Connect(); err != nil {
		if !errors.Is(err, io.EOF) {
			fmt.Fprintf(c.term, "InternalServerError: %v\n", err)
			log.Println(err)
			log.Println(mudkit.StackTrace(err))
		}
	}
}

// getSpawnLocation returns the configured spawn room, or genesis when it's
// unset or gone.
func (g *Game) getSpawnLocation() string {
	spawn := g.config.GetSpawn()
	if spawn == "" {
		return genesisID
	}
	if _, err := g.storage.GetObject(spawn); errors.Is(err, os.ErrNotExist) {
		log.Printf("Spawn room %q is gone, using %q", spawn, genesisID)
		return genesisID
	} else if err != nil {
		log.Printf("Loading spawn room %q: %v", spawn, err)
		return genesisID
	}
	return spawn
}

// createCharacter creates the character object of user in the spawn room.
func (g *Game) createCharacter(user *structs.User) (*structs.Object, error) {
	obj := structs.MakeObject(structs.KindCharacter, user.Name)
	obj.Owner = user.Name
	obj.Location = g.getSpawnLocation()
	if err := g.storage.CreateObject(obj); err != nil {
		return nil, mudkit.WithStack(err)
	}
	user.Object = obj.Id
	return obj, nil
}

// handleEvent handles events from the queue. Only storage failures stop
// the queue, anything else is logged.
func (g *Game) handleEvent(ctx context.Context, ev *structs.Event) error {
	switch ev.Call.Name {
	case growEventName:
		if err := g.grow(ev.Object, false); errors.Is(err, os.ErrNotExist) {
			return nil
		} else if err != nil {
			log.Printf("Growing %q: %v", ev.Object, err)
			log.Println(mudkit.StackTrace(err))
		}
	default:
		log.Printf("Unknown event %q for %q", ev.Call.Name, ev.Object)
	}
	return nil
}
