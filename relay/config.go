package relay

import (
	"log"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/zond/mudkit"
)

type Config struct {
	Token string `env:"DISCORD_TOKEN"`
	// ToDiscord and ToGame format relayed messages, replacing {user} and
	// {message}.
	ToDiscord string `env:"RELAY_FORMAT_TO_DISCORD" envDefault:"**{user}**: {message}"`
	ToGame    string `env:"RELAY_FORMAT_TO_GAME" envDefault:"[{user}] {message}"`
	BotPrefix string `env:"RELAY_BOT_PREFIX" envDefault:"DC-"`
	// Rate is the number of messages per second sent to Discord.
	Rate       float64 `env:"RELAY_RATE" envDefault:"1"`
	Burst      int     `env:"RELAY_BURST" envDefault:"5"`
	OutboxSize int     `env:"RELAY_OUTBOX_SIZE" envDefault:"256"`
}

// LoadConfig reads the config from the environment, after loading the given
// dotenv files, or .env if none are given and it exists.
func LoadConfig(dotenv ...string) (*Config, error) {
	if err := godotenv.Load(dotenv...); errors.Is(err, os.ErrNotExist) {
		if len(dotenv) > 0 {
			return nil, mudkit.WithStack(err)
		}
		log.Println("No .env file found, using the environment")
	} else if err != nil {
		return nil, mudkit.WithStack(err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, mudkit.WithStack(err)
	}
	return cfg, nil
}

// Enabled reports whether there is a token to connect to Discord with.
func (c *Config) Enabled() bool {
	return c.Token != ""
}

func format(pattern string, user string, message string) string {
	if user == "" {
		return message
	}
	return strings.NewReplacer("{user}", user, "{message}", message).Replace(pattern)
}
