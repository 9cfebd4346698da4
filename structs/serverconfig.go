package structs

import (
	"sync"
	"time"

	goccy "github.com/goccy/go-json"
)

// ServerConfig holds the server settings wizards change at runtime.
// All fields are private and accessed via getters/setters that handle locking.
type ServerConfig struct {
	mu             sync.RWMutex
	spawn          string        // Room ID for spawning new users
	growthInterval time.Duration // Time between growth checks
	historyLength  int           // Channel messages shown when joining
}

func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		historyLength: 10,
	}
}

func (c *ServerConfig) GetSpawn() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.spawn
}

func (c *ServerConfig) SetSpawn(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawn = room
}

// GetGrowthInterval returns the growth interval, 0 means the growth default.
func (c *ServerConfig) GetGrowthInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.growthInterval
}

func (c *ServerConfig) SetGrowthInterval(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.growthInterval = d
}

func (c *ServerConfig) GetHistoryLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.historyLength
}

func (c *ServerConfig) SetHistoryLength(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.historyLength = n
}

// serverConfigJSON is the JSON serialization format for ServerConfig.
type serverConfigJSON struct {
	Spawn          string
	GrowthInterval time.Duration
	HistoryLength  int
}

func (c *ServerConfig) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return goccy.Marshal(serverConfigJSON{
		Spawn:          c.spawn,
		GrowthInterval: c.growthInterval,
		HistoryLength:  c.historyLength,
	})
}

func (c *ServerConfig) UnmarshalJSON(data []byte) error {
	var j serverConfigJSON
	if err := goccy.Unmarshal(data, &j); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spawn = j.Spawn
	c.growthInterval = j.GrowthInterval
	c.historyLength = j.HistoryLength
	return nil
}

func (c *ServerConfig) Marshal() ([]byte, error) {
	return c.MarshalJSON()
}

func (c *ServerConfig) Unmarshal(b []byte) error {
	return c.UnmarshalJSON(b)
}
