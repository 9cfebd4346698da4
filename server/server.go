// Package server wires storage, game, the Discord relay and the SSH listener
// into one process.
package server

import (
	"context"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/gliderlabs/ssh"
	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/game"
	"github.com/zond/mudkit/pemfile"
	"github.com/zond/mudkit/relay"
	"github.com/zond/mudkit/storage"

	gossh "golang.org/x/crypto/ssh"
)

type Config struct {
	SSHAddr string
	// Dir holds the databases and the host key.
	Dir string
	// ClothingPath is a YAML or JSON clothing config, empty means the defaults.
	ClothingPath string
	// DotEnv are the files to load the relay config from before reading the
	// environment.
	DotEnv []string
	// NoRelay disables the Discord relay even if a token is configured.
	NoRelay bool
}

func DefaultConfig() Config {
	return Config{
		SSHAddr: "127.0.0.1:15000",
		Dir:     filepath.Join(os.Getenv("HOME"), ".mudkit"),
	}
}

type Server struct {
	config    Config
	cancel    context.CancelFunc
	storage   *storage.Storage
	game      *game.Game
	relay     *relay.Relay
	signer    gossh.Signer
	sshServer *ssh.Server
	closeOnce sync.Once
	closeErr  error
}

// New opens the storage in config.Dir, generating a host key there if
// missing, and starts the game. The Discord relay is started if its config
// has a token.
func New(ctx context.Context, config Config) (*Server, error) {
	if err := os.MkdirAll(config.Dir, 0700); err != nil {
		return nil, mudkit.WithStack(err)
	}
	signer, generated, err := pemfile.KeyParams{
		KeyPath:       filepath.Join(config.Dir, "private.pem"),
		SSHPubKeyPath: filepath.Join(config.Dir, "public.pem"),
	}.Ensure()
	if err != nil {
		return nil, err
	}
	if generated {
		log.Printf("Generated server key pair in %q", config.Dir)
	}

	clothingConfig := clothing.DefaultConfig()
	if config.ClothingPath != "" {
		if clothingConfig, err = clothing.LoadConfig(config.ClothingPath); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s, err := storage.New(ctx, config.Dir)
	if err != nil {
		cancel()
		return nil, err
	}
	g, err := game.New(ctx, s, game.Options{Clothing: clothingConfig})
	if err != nil {
		cancel()
		s.Close()
		return nil, err
	}
	srv := &Server{
		config:  config,
		cancel:  cancel,
		storage: s,
		game:    g,
		signer:  signer,
	}
	if !config.NoRelay {
		if err := srv.startRelay(); err != nil {
			srv.Close()
			return nil, err
		}
	}
	srv.sshServer = &ssh.Server{
		Handler: g.HandleSession,
	}
	srv.sshServer.AddHostKey(signer)
	return srv, nil
}

func (s *Server) startRelay() error {
	relayConfig, err := relay.LoadConfig(s.config.DotEnv...)
	if err != nil {
		return err
	}
	if !relayConfig.Enabled() {
		return nil
	}
	transport, err := relay.NewDiscordTransport(relayConfig.Token)
	if err != nil {
		return err
	}
	if s.relay, err = relay.New(relayConfig, transport, s.storage, s.game); err != nil {
		transport.Close()
		return err
	}
	s.game.SetRelay(s.relay)
	log.Println("Relaying channels to Discord")
	return nil
}

func (s *Server) Storage() *storage.Storage {
	return s.storage
}

func (s *Server) Game() *game.Game {
	return s.game
}

// Fingerprint is the SHA256 fingerprint of the host key.
func (s *Server) Fingerprint() string {
	return gossh.FingerprintSHA256(s.signer.PublicKey())
}

// Start listens on config.SSHAddr and serves until Close.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.SSHAddr)
	if err != nil {
		return mudkit.WithStack(err)
	}
	return s.StartWithListener(ln)
}

// StartWithListener serves SSH sessions from ln until Close.
func (s *Server) StartWithListener(ln net.Listener) error {
	log.Printf("Listening on %q with public key %q", ln.Addr().String(), s.Fingerprint())
	if err := s.sshServer.Serve(ln); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return mudkit.WithStack(err)
	}
	return nil
}

// Close stops accepting sessions, stops the relay and the game, and closes
// the storage.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.sshServer != nil {
			if err := s.sshServer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if s.relay != nil {
			if err := s.relay.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.cancel()
		<-s.game.Done()
		if err := s.storage.Close(); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			s.closeErr = mudkit.WithStack(errs[0])
		}
	})
	return s.closeErr
}
