package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zond/mudkit"

	_ "modernc.org/sqlite"
)

const (
	historySchema = `
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	channel TEXT NOT NULL,
	sender TEXT NOT NULL,
	message TEXT NOT NULL,
	at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS history_channel_id ON history (channel, id);`
	historyBusyTimeout = 5 * time.Second
)

// HistoryEntry is one message said on a channel.
type HistoryEntry struct {
	ID      int64  `db:"id"`
	Channel string `db:"channel"`
	Sender  string `db:"sender"`
	Message string `db:"message"`
	At      int64  `db:"at"`
}

func (h *HistoryEntry) Time() time.Time {
	return time.Unix(0, h.At)
}

// History keeps channel messages in a sqlite database.
type History struct {
	db *sqlx.DB
}

func OpenHistory(ctx context.Context, path string) (*History, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	db.SetMaxOpenConns(1)
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", historyBusyTimeout.Milliseconds()),
		historySchema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, mudkit.WithStack(err)
		}
	}
	return &History{db: db}, nil
}

// Record stores entry, setting its ID, and its time if not already set.
func (h *History) Record(ctx context.Context, entry *HistoryEntry) error {
	if entry.At == 0 {
		entry.At = time.Now().UnixNano()
	}
	res, err := h.db.NamedExecContext(ctx, "INSERT INTO history (channel, sender, message, at) VALUES (:channel, :sender, :message, :at)", entry)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return mudkit.WithStack(err)
	}
	return nil
}

// Recent returns the last limit entries of channel, oldest first.
func (h *History) Recent(ctx context.Context, channel string, limit int) ([]HistoryEntry, error) {
	result := []HistoryEntry{}
	if limit <= 0 {
		return result, nil
	}
	if err := h.db.SelectContext(ctx, &result, `
SELECT * FROM (
	SELECT * FROM history WHERE channel = ? ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, channel, limit); err != nil {
		return nil, mudkit.WithStack(err)
	}
	return result, nil
}

// Forget removes all history of channel.
func (h *History) Forget(ctx context.Context, channel string) error {
	if _, err := h.db.ExecContext(ctx, "DELETE FROM history WHERE channel = ?", channel); err != nil {
		return mudkit.WithStack(err)
	}
	return nil
}

func (h *History) Close() error {
	return mudkit.WithStack(h.db.Close())
}
