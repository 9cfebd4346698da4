package storage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/structs"
	"gopkg.in/natefinch/lumberjack.v2"

	goccy "github.com/goccy/go-json"
)

type sessionIDKey struct{}

// SetSessionID returns a context carrying the session ID that audit entries
// logged with it will contain.
func SetSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok
}

// AuditLogger writes security-relevant events to a rotating log file as JSON.
type AuditLogger struct {
	mu  sync.Mutex
	out *lumberjack.Logger
	enc *goccy.Encoder
}

// AuditRef identifies a user by name and, when known, the object it plays.
type AuditRef struct {
	Name   string `json:"name"`
	Object string `json:"object,omitempty"`
}

func UserRef(u *structs.User) AuditRef {
	return AuditRef{Name: u.Name, Object: u.Object}
}

func SystemRef() AuditRef {
	return AuditRef{Name: "system"}
}

type AuditData interface {
	auditData()
}

type AuditEntry struct {
	Time      string    `json:"time"`
	SessionID string    `json:"session_id,omitempty"`
	Event     string    `json:"event"`
	Data      AuditData `json:"data"`
}

type AuditUserCreate struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditUserCreate) auditData() {}

type AuditUserLogin struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditUserLogin) auditData() {}

type AuditSessionEnd struct {
	User AuditRef `json:"user"`
}

func (AuditSessionEnd) auditData() {}

type AuditLoginFailed struct {
	User   AuditRef `json:"user"`
	Remote string   `json:"remote"`
}

func (AuditLoginFailed) auditData() {}

// AuditRelayCreate is logged when a wizard links a channel with Discord.
type AuditRelayCreate struct {
	Caller         AuditRef `json:"caller"`
	Bot            string   `json:"bot"`
	Channel        string   `json:"channel"`
	DiscordChannel string   `json:"discord_channel"`
}

func (AuditRelayCreate) auditData() {}

type AuditRelayDelete struct {
	Caller AuditRef `json:"caller"`
	Bot    string   `json:"bot"`
}

func (AuditRelayDelete) auditData() {}

// AuditSpawnChange is logged when a wizard moves the spawn room.
type AuditSpawnChange struct {
	Caller AuditRef `json:"caller"`
	From   string   `json:"from"`
	To     string   `json:"to"`
}

func (AuditSpawnChange) auditData() {}

// NewAuditLogger creates an audit logger writing to path, rotated at
// maxSizeMB megabytes keeping maxBackups old files.
func NewAuditLogger(path string, maxSizeMB int, maxBackups int) *AuditLogger {
	out := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
	return &AuditLogger{
		out: out,
		enc: goccy.NewEncoder(out),
	}
}

// Log writes a structured audit entry as JSON.
func (a *AuditLogger) Log(ctx context.Context, event string, data AuditData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sessionID, _ := SessionID(ctx)
	if err := a.enc.Encode(AuditEntry{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	}); err != nil {
		log.Printf("audit log %q failed: %v", event, err)
	}
}

func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return mudkit.WithStack(a.out.Close())
}
