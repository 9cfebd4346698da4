package mudkit

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var (
	lastUniqueCounter uint64 = 0
	encoding                 = base64.RawURLEncoding
)

const (
	uniqueIDLen = 16
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func WithStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); !ok {
		return errors.WithStack(err)
	}
	return err
}

func StackTrace(err error) string {
	buf := &bytes.Buffer{}
	if err, ok := err.(stackTracer); ok {
		for _, f := range err.StackTrace() {
			fmt.Fprintf(buf, "%+v\n", f)
		}
	}
	return buf.String()
}

// NextUniqueID returns a URL safe ID made of a timestamp and a random suffix.
func NextUniqueID() string {
	counter := Increment(&lastUniqueCounter)
	result := make([]byte, uniqueIDLen)
	binary.BigEndian.PutUint64(result, counter)
	if _, err := rand.Read(result[binary.Size(counter):]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return encoding.EncodeToString(result)
}

type SyncMap[K comparable, V comparable] struct {
	m     map[K]V
	locks map[K]*sync.WaitGroup
	mutex sync.RWMutex
}

func NewSyncMap[K comparable, V comparable]() *SyncMap[K, V] {
	return &SyncMap[K, V]{
		m:     map[K]V{},
		locks: map[K]*sync.WaitGroup{},
	}
}

func (s *SyncMap[K, V]) GetHas(key K) (V, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, found := s.m[key]
	return v, found
}

func (s *SyncMap[K, V]) Get(key K) V {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.m[key]
}

func (s *SyncMap[K, V]) Set(key K, value V) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.m[key] = value
}

// SetIfMissing stores value unless key is present, and reports whether it stored.
func (s *SyncMap[K, V]) SetIfMissing(key K, value V) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, found := s.m[key]; found {
		return false
	}
	s.m[key] = value
	return true
}

func (s *SyncMap[K, V]) Del(key K) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.m, key)
}

func (s *SyncMap[K, V]) Has(key K) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, found := s.m[key]
	return found
}

func (l *SyncMap[K, V]) WithLock(key K, f func()) {
	l.Lock(key)
	defer l.Unlock(key)
	f()
}

func (l *SyncMap[K, V]) Lock(key K) {
	trylock := func() *sync.WaitGroup {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		if wg, found := l.locks[key]; found {
			return wg
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		l.locks[key] = wg
		return nil
	}
	for wg := trylock(); wg != nil; wg = trylock() {
		wg.Wait()
	}
}

func (l *SyncMap[K, V]) Unlock(key K) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if wg, found := l.locks[key]; found {
		delete(l.locks, key)
		wg.Done()
	}
}

func Increment(prevPointer *uint64) uint64 {
	next := uint64(0)
	for {
		next = uint64(time.Now().UnixNano())
		previous := atomic.LoadUint64(prevPointer)
		if next > previous && atomic.CompareAndSwapUint64(prevPointer, previous, next) {
			break
		}
	}
	return next
}
