package mudkit

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func TestWithStack(t *testing.T) {
	if WithStack(nil) != nil {
		t.Error("WithStack(nil) isn't nil")
	}
	err := WithStack(os.ErrNotExist)
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("%v doesn't wrap os.ErrNotExist", err)
	}
	if !strings.Contains(StackTrace(err), "TestWithStack") {
		t.Errorf("stack trace %q doesn't contain the caller", StackTrace(err))
	}
	if WithStack(err) != err {
		t.Error("WithStack wrapped an error that already had a stack")
	}
	if got := StackTrace(os.ErrNotExist); got != "" {
		t.Errorf("got stack trace %q for an error without stack", got)
	}
}

func TestNextUniqueID(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = NextUniqueID()
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Errorf("%q generated twice", id)
		}
		seen[id] = true
		if len(id) != 22 {
			t.Errorf("got %q of length %v, want 22", id, len(id))
		}
	}
}

func TestSyncMap(t *testing.T) {
	m := NewSyncMap[string, int]()
	m.Set("a", 1)
	if !m.SetIfMissing("b", 2) {
		t.Error("SetIfMissing didn't store a missing key")
	}
	if m.SetIfMissing("a", 3) {
		t.Error("SetIfMissing overwrote a present key")
	}
	if v, found := m.GetHas("a"); !found || v != 1 {
		t.Errorf("got %v, %v, want 1, true", v, found)
	}
	if got := m.Get("b"); got != 2 {
		t.Errorf("got %v, want 2", got)
	}
	m.Del("a")
	if m.Has("a") {
		t.Error("a still present after Del")
	}
	if _, found := m.GetHas("a"); found {
		t.Error("GetHas found a deleted key")
	}
}

func TestSyncMapWithLock(t *testing.T) {
	m := NewSyncMap[string, int]()
	wg := &sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.WithLock("counter", func() {
				m.Set("counter", m.Get("counter")+1)
			})
		}()
	}
	wg.Wait()
	if got := m.Get("counter"); got != 50 {
		t.Errorf("got %v, want 50", got)
	}
}
