package game

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	first, err := hashPassword("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(first, "$argon2id$") {
		t.Errorf("got %q, want PHC argon2id format", first)
	}
	if parts := strings.Split(first, "$"); len(parts) != 6 {
		t.Errorf("got %d parts in %q, want 6", len(parts), first)
	}
	second, err := hashPassword("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("same password hashed twice gave the same hash")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := hashPassword("hunter2!")
	if err != nil {
		t.Fatal(err)
	}
	for _, tc := range []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"correct", "hunter2!", hash, true},
		{"wrong", "hunter3!", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", "hunter2!", "", false},
		{"wrong algorithm", "hunter2!", "$argon2i$v=19$m=65536,t=1,p=4$abc$def", false},
		{"too few parts", "hunter2!", "$argon2id$v=19", false},
		{"bad salt", "hunter2!", "$argon2id$v=19$m=65536,t=1,p=4$!!!$def", false},
		{"bad hash", "hunter2!", "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$!!!", false},
		{"bad params", "hunter2!", "$argon2id$v=19$nope$abc$def", false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := verifyPassword(tc.password, tc.hash); got != tc.want {
				t.Errorf("verifyPassword(%q) = %v, want %v", tc.password, got, tc.want)
			}
		})
	}
}

func TestLoginRateLimiter(t *testing.T) {
	l := newLoginRateLimiter(time.Hour)
	if wait := l.wait("alice"); wait != 0 {
		t.Errorf("fresh user waits %v, want 0", wait)
	}
	l.recordFailure("alice")
	if wait := l.wait("alice"); wait <= 0 || wait > time.Hour {
		t.Errorf("after failure alice waits %v, want (0, 1h]", wait)
	}
	if wait := l.wait("bob"); wait != 0 {
		t.Errorf("bob waits %v after alice failed, want 0", wait)
	}
	l.clearFailure("alice")
	if wait := l.wait("alice"); wait != 0 {
		t.Errorf("after clear alice waits %v, want 0", wait)
	}
}

func TestLoginRateLimiterExpiry(t *testing.T) {
	l := newLoginRateLimiter(20 * time.Millisecond)
	l.recordFailure("alice")
	time.Sleep(40 * time.Millisecond)
	if wait := l.wait("alice"); wait != 0 {
		t.Errorf("alice waits %v after the interval passed, want 0", wait)
	}
}

func TestLoginRateLimiterWaitIfNeeded(t *testing.T) {
	l := newLoginRateLimiter(30 * time.Millisecond)
	l.recordFailure("alice")
	out := &strings.Builder{}
	start := time.Now()
	l.waitIfNeeded("alice", out)
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("waited %v, want close to 30ms", elapsed)
	}
	if !strings.Contains(out.String(), "Please wait") {
		t.Errorf("got %q, want a wait notice", out.String())
	}
}

func TestLoginRateLimiterConcurrent(t *testing.T) {
	l := newLoginRateLimiter(time.Hour)
	wg := sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.recordFailure("alice")
				l.wait("alice")
				l.clearFailure("alice")
			}
		}()
	}
	wg.Wait()
}
