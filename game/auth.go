package game

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pkgz/expirable-cache/v3"
	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// hashPassword creates an Argon2id hash of the password.
// Returns the hash in PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func hashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// verifyPassword checks if the password matches a hash made by hashPassword.
func verifyPassword(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	hash := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expectedHash)))
	return subtle.ConstantTimeCompare(hash, expectedHash) == 1
}

const (
	loginAttemptInterval = 10 * time.Second
	loginAttemptMaxKeys  = 10000
)

// loginRateLimiter tracks failed login attempts per username. Entries expire
// after loginAttemptInterval, and the number of tracked usernames is capped
// so that spamming unique usernames can't grow it without bound.
type loginRateLimiter struct {
	interval time.Duration
	attempts cache.Cache[string, time.Time]
}

func newLoginRateLimiter(interval time.Duration) *loginRateLimiter {
	return &loginRateLimiter{
		interval: interval,
		attempts: cache.NewCache[string, time.Time]().WithTTL(interval).WithMaxKeys(loginAttemptMaxKeys),
	}
}

// wait returns how long to wait before the next attempt for username.
func (l *loginRateLimiter) wait(username string) time.Duration {
	last, found := l.attempts.Get(username)
	if !found {
		return 0
	}
	return max(l.interval-time.Since(last), 0)
}

// waitIfNeeded blocks if a recent failed attempt exists for the username.
func (l *loginRateLimiter) waitIfNeeded(username string, w io.Writer) {
	if wait := l.wait(username); wait > 0 {
		fmt.Fprintf(w, "Please wait %v before trying again.\n", wait.Round(time.Second))
		time.Sleep(wait)
	}
}

func (l *loginRateLimiter) recordFailure(username string) {
	l.attempts.Set(username, time.Now(), 0)
}

func (l *loginRateLimiter) clearFailure(username string) {
	l.attempts.Invalidate(username)
}
