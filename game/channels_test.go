package game

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zond/mudkit/storage"
	"golang.org/x/term"
)

// testTerminal creates a terminal writing to the returned buffer.
func testTerminal(t *testing.T) (*term.Terminal, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return term.NewTerminal(&testReadWriter{Reader: &bytes.Buffer{}, Writer: buf}, ""), buf
}

// failingTerminal creates a terminal whose writes always fail.
func failingTerminal(t *testing.T) *term.Terminal {
	t.Helper()
	return term.NewTerminal(&testReadWriter{Reader: &bytes.Buffer{}, Writer: &failingWriter{}}, "")
}

type testReadWriter struct {
	Reader io.Reader
	Writer io.Writer
}

func (rw *testReadWriter) Read(p []byte) (int, error) {
	return rw.Reader.Read(p)
}

func (rw *testReadWriter) Write(p []byte) (int, error) {
	return rw.Writer.Write(p)
}

type failingWriter struct{}

func (w *failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrClosedPipe
}

type countingWriter struct {
	count atomic.Int32
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.count.Add(1)
	return len(p), nil
}

type published struct {
	channel string
	sender  string
	text    string
}

func withChannels(t *testing.T, historyLength int, f func(c *Channels, relayed func() []published)) {
	t.Helper()
	ctx := context.Background()
	history, err := storage.OpenHistory(ctx, filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer history.Close()
	mu := sync.Mutex{}
	got := []published{}
	c := NewChannels(history, func() int { return historyLength }, func(channel, sender, text string) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, published{channel: channel, sender: sender, text: text})
	})
	f(c, func() []published {
		mu.Lock()
		defer mu.Unlock()
		return append([]published{}, got...)
	})
}

func TestChannelsJoinLeave(t *testing.T) {
	withChannels(t, 10, func(c *Channels, _ func() []published) {
		ctx := context.Background()
		t1, _ := testTerminal(t)
		t2, _ := testTerminal(t)
		if c.IsJoined("ooc", t1) {
			t.Error("joined before Join")
		}
		if err := c.Join(ctx, "ooc", t1); err != nil {
			t.Fatal(err)
		}
		if err := c.Join(ctx, "lfg", t1); err != nil {
			t.Fatal(err)
		}
		if err := c.Join(ctx, "ooc", t2); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]string{"lfg", "ooc"}, c.Joined(t1)); diff != "" {
			t.Errorf("Joined(t1) mismatch (-want +got):\n%s", diff)
		}
		c.Leave("ooc", t1)
		if c.IsJoined("ooc", t1) {
			t.Error("still joined after Leave")
		}
		if !c.IsJoined("ooc", t2) {
			t.Error("t2 left with t1")
		}
		c.Leave("nowhere", t1)
		c.LeaveAll(t1)
		if diff := cmp.Diff([]string{}, c.Joined(t1)); diff != "" {
			t.Errorf("Joined(t1) after LeaveAll mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestChannelsJoinNil(t *testing.T) {
	withChannels(t, 10, func(c *Channels, _ func() []published) {
		if err := c.Join(context.Background(), "ooc", nil); err != nil {
			t.Fatal(err)
		}
		if c.IsJoined("ooc", nil) {
			t.Error("nil terminal joined")
		}
	})
}

func TestChannelsPublish(t *testing.T) {
	withChannels(t, 10, func(c *Channels, relayed func() []published) {
		ctx := context.Background()
		on, onBuf := testTerminal(t)
		off, offBuf := testTerminal(t)
		if err := c.Join(ctx, "ooc", on); err != nil {
			t.Fatal(err)
		}
		if err := c.Join(ctx, "lfg", off); err != nil {
			t.Fatal(err)
		}
		if err := c.Publish(ctx, "ooc", "alice", "hello there"); err != nil {
			t.Fatal(err)
		}
		if got := onBuf.String(); !strings.Contains(got, "[ooc] alice: hello there") {
			t.Errorf("subscriber got %q", got)
		}
		if got := offBuf.String(); strings.Contains(got, "hello there") {
			t.Errorf("other channel got %q", got)
		}
		if diff := cmp.Diff([]published{{channel: "ooc", sender: "alice", text: "hello there"}}, relayed(), cmp.AllowUnexported(published{})); diff != "" {
			t.Errorf("relayed mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestChannelsPublishDropsFailing(t *testing.T) {
	withChannels(t, 10, func(c *Channels, _ func() []published) {
		ctx := context.Background()
		good, goodBuf := testTerminal(t)
		bad := failingTerminal(t)
		for _, tm := range []*term.Terminal{good, bad} {
			if err := c.Join(ctx, "ooc", tm); err != nil {
				t.Fatal(err)
			}
		}
		if err := c.Publish(ctx, "ooc", "alice", "ping"); err != nil {
			t.Fatal(err)
		}
		if c.IsJoined("ooc", bad) {
			t.Error("failing terminal still joined")
		}
		if !c.IsJoined("ooc", good) {
			t.Error("working terminal dropped")
		}
		if !strings.Contains(goodBuf.String(), "ping") {
			t.Errorf("working terminal got %q", goodBuf.String())
		}
	})
}

func TestChannelsJoinReplaysHistory(t *testing.T) {
	withChannels(t, 2, func(c *Channels, _ func() []published) {
		ctx := context.Background()
		for _, text := range []string{"one", "two", "three"} {
			if err := c.Publish(ctx, "ooc", "alice", text); err != nil {
				t.Fatal(err)
			}
		}
		if err := c.Publish(ctx, "lfg", "bob", "elsewhere"); err != nil {
			t.Fatal(err)
		}
		tm, buf := testTerminal(t)
		if err := c.Join(ctx, "ooc", tm); err != nil {
			t.Fatal(err)
		}
		got := buf.String()
		if strings.Contains(got, "one") || !strings.Contains(got, "two") || !strings.Contains(got, "three") {
			t.Errorf("replay got %q, want the last two messages", got)
		}
		if strings.Index(got, "two") > strings.Index(got, "three") {
			t.Errorf("replay out of order: %q", got)
		}
		if strings.Contains(got, "elsewhere") {
			t.Errorf("replay leaked another channel: %q", got)
		}
	})
}

func TestChannelsJoinFailingReplay(t *testing.T) {
	withChannels(t, 5, func(c *Channels, _ func() []published) {
		ctx := context.Background()
		if err := c.Publish(ctx, "ooc", "alice", "hi"); err != nil {
			t.Fatal(err)
		}
		bad := failingTerminal(t)
		if err := c.Join(ctx, "ooc", bad); err == nil {
			t.Error("Join succeeded on a failing terminal")
		}
		if c.IsJoined("ooc", bad) {
			t.Error("failing terminal stayed joined")
		}
	})
}

func TestChannelsConcurrent(t *testing.T) {
	withChannels(t, 0, func(c *Channels, _ func() []published) {
		ctx := context.Background()
		tm, _ := testTerminal(t)
		wg := sync.WaitGroup{}
		for i := 0; i < 5; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if err := c.Join(ctx, "ooc", tm); err != nil {
						t.Error(err)
					}
					c.IsJoined("ooc", tm)
					c.Leave("ooc", tm)
				}
			}()
			go func() {
				defer wg.Done()
				for j := 0; j < 20; j++ {
					if err := c.Publish(ctx, "ooc", "alice", "spam"); err != nil {
						t.Error(err)
					}
				}
			}()
		}
		wg.Wait()
	})
}

func TestFanout(t *testing.T) {
	good, goodBuf := testTerminal(t)
	bad := failingTerminal(t)
	var f *Fanout
	if n, err := f.Write([]byte("void")); err != nil || n != 4 {
		t.Errorf("nil Fanout Write = %v, %v", n, err)
	}
	f = f.Push(good).Push(bad)
	if f.Len() != 2 {
		t.Fatalf("Len() = %v, want 2", f.Len())
	}
	if _, err := f.Write([]byte("hello")); err == nil {
		t.Error("Write succeeded with a failing terminal")
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %v after failure, want 1", f.Len())
	}
	if !strings.Contains(goodBuf.String(), "hello") {
		t.Errorf("got %q", goodBuf.String())
	}
	f.Drop(good)
	if f.Len() != 0 {
		t.Errorf("Len() = %v after Drop, want 0", f.Len())
	}
}

func TestFanoutCounts(t *testing.T) {
	counter := &countingWriter{}
	f := (*Fanout)(nil).Push(term.NewTerminal(&testReadWriter{Reader: &bytes.Buffer{}, Writer: counter}, ""))
	for i := 0; i < 3; i++ {
		if _, err := f.Write([]byte("x")); err != nil {
			t.Fatal(err)
		}
	}
	if got := counter.count.Load(); got != 3 {
		t.Errorf("got %v writes, want 3", got)
	}
}
