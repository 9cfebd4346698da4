package storage

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/storage/dbm"
	"github.com/zond/mudkit/storage/queue"
	"github.com/zond/mudkit/structs"
)

var (
	ErrCycle    = errors.New("can't move an object into itself")
	ErrNotEmpty = errors.New("object isn't empty")
	ErrMoved    = errors.New("object moved while being updated")
)

const (
	serverConfigKey = "server"
	auditMaxSizeMB  = 100
	auditMaxBackups = 5
)

// Storage persists the world, its users, and everything scheduled to happen
// in it.
//
// Objects are only changed through WithObjects, or the operations built on
// it, which lock the involved objects in ID order. Calls must not be nested.
type Storage struct {
	objects  *dbm.TypeHash[structs.Object, *structs.Object]
	users    *dbm.TypeHash[structs.User, *structs.User]
	relays   *dbm.TypeHash[structs.RelayBot, *structs.RelayBot]
	settings *dbm.Hash
	events   *dbm.TypeTree[structs.Event, *structs.Event]
	closers  []func() error
	locks    *mudkit.SyncMap[string, bool]
	queue    *queue.Queue
	history  *History
	audit    *AuditLogger
}

func New(ctx context.Context, dir string) (*Storage, error) {
	o := &opener{Dir: dir}
	s := &Storage{
		objects:  openTypeHash[structs.Object, *structs.Object](o, "objects"),
		users:    openTypeHash[structs.User, *structs.User](o, "users"),
		relays:   openTypeHash[structs.RelayBot, *structs.RelayBot](o, "relays"),
		settings: o.OpenHash("settings"),
		events:   openTypeTree[structs.Event, *structs.Event](o, "events"),
		locks:    mudkit.NewSyncMap[string, bool](),
	}
	if o.Err != nil {
		o.Abort()
		return nil, o.Err
	}
	history, err := OpenHistory(ctx, filepath.Join(dir, "history.sqlite"))
	if err != nil {
		o.Abort()
		return nil, mudkit.WithStack(err)
	}
	s.closers = o.closer
	s.history = history
	s.queue = queue.New(s.events)
	s.audit = NewAuditLogger(filepath.Join(dir, "audit.log"), auditMaxSizeMB, auditMaxBackups)
	return s, nil
}

func (s *Storage) Queue() *queue.Queue {
	return s.queue
}

func (s *Storage) History() *History {
	return s.history
}

func (s *Storage) AuditLog(ctx context.Context, event string, data AuditData) {
	s.audit.Log(ctx, event, data)
}

// Close stops the queue and closes all databases, returning the first error.
func (s *Storage) Close() error {
	var first error
	keep := func(err error) {
		if first == nil && err != nil {
			first = mudkit.WithStack(err)
		}
	}
	keep(s.queue.Close())
	keep(s.history.Close())
	keep(s.audit.Close())
	for _, c := range s.closers {
		keep(c())
	}
	return first
}

func (s *Storage) LoadServerConfig(c *structs.ServerConfig) error {
	b, err := s.settings.Get(serverConfigKey)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return mudkit.WithStack(err)
	}
	return mudkit.WithStack(c.Unmarshal(b))
}

func (s *Storage) StoreServerConfig(c *structs.ServerConfig) error {
	b, err := c.Marshal()
	if err != nil {
		return mudkit.WithStack(err)
	}
	return s.settings.Set(serverConfigKey, b, true)
}

func (s *Storage) LoadUser(name string) (*structs.User, error) {
	return s.users.Get(name)
}

// CreateUser stores a new user, failing with os.ErrExist if the name is taken.
func (s *Storage) CreateUser(user *structs.User) error {
	return s.users.Set(user.Name, user, false)
}

func (s *Storage) StoreUser(user *structs.User) error {
	return s.users.Set(user.Name, user, true)
}

// RelayBots returns all relay bots sorted by name.
func (s *Storage) RelayBots() ([]*structs.RelayBot, error) {
	result := []*structs.RelayBot{}
	if err := s.relays.Each(func(_ string, bot *structs.RelayBot) (bool, error) {
		result = append(result, bot)
		return true, nil
	}); err != nil {
		return nil, mudkit.WithStack(err)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (s *Storage) SetRelayBot(bot *structs.RelayBot) error {
	return s.relays.Set(bot.Name, bot, true)
}

func (s *Storage) DelRelayBot(name string) error {
	return s.relays.Del(name)
}

func (s *Storage) GetObject(id string) (*structs.Object, error) {
	obj, err := s.objects.Get(id)
	if err != nil {
		return nil, errors.Wrapf(err, "object %q", id)
	}
	return obj, nil
}

// GetObjects returns the objects with ids, in the same order. Any missing
// object fails the whole call with os.ErrNotExist.
func (s *Storage) GetObjects(ids ...string) (structs.Objects, error) {
	keys := make(map[string]bool, len(ids))
	for _, id := range ids {
		keys[id] = true
	}
	found, err := s.objects.GetMulti(keys)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	result := make(structs.Objects, 0, len(ids))
	for _, id := range ids {
		obj, ok := found[id]
		if !ok {
			return nil, errors.Wrapf(os.ErrNotExist, "object %q", id)
		}
		result = append(result, obj)
	}
	return result, nil
}

// Content returns what obj contains, sorted by name and ID.
func (s *Storage) Content(obj *structs.Object) (structs.Objects, error) {
	ids := make([]string, 0, len(obj.Content))
	for id := range obj.Content {
		ids = append(ids, id)
	}
	result, err := s.GetObjects(ids...)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].Id < result[j].Id
	})
	return result, nil
}

// withLocks calls f while holding the locks of ids, taken in ID order.
func (s *Storage) withLocks(ids []string, f func() error) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return s.lockSorted(slices.Compact(sorted), f)
}

func (s *Storage) lockSorted(sorted []string, f func() error) error {
	if len(sorted) == 0 {
		return f()
	}
	var err error
	s.locks.WithLock(sorted[0], func() {
		err = s.lockSorted(sorted[1:], f)
	})
	return err
}

// commit atomically stores store and deletes remove.
func (s *Storage) commit(store structs.Objects, remove ...string) error {
	procs := make([]dbm.Proc, 0, len(store)+len(remove))
	for _, obj := range store {
		procs = append(procs, s.objects.SProc(obj.Id, func(string, *structs.Object) (*structs.Object, error) {
			return obj, nil
		}))
	}
	for _, id := range remove {
		procs = append(procs, s.objects.SProc(id, func(string, *structs.Object) (*structs.Object, error) {
			return nil, nil
		}))
	}
	return s.objects.Proc(procs, true)
}

// WithObjects locks and loads the objects with ids, calls f with them keyed
// by ID, and stores all of them atomically unless f fails.
func (s *Storage) WithObjects(ids []string, f func(map[string]*structs.Object) error) error {
	return s.withLocks(ids, func() error {
		objs, err := s.GetObjects(ids...)
		if err != nil {
			return mudkit.WithStack(err)
		}
		byID := make(map[string]*structs.Object, len(objs))
		for _, obj := range objs {
			byID[obj.Id] = obj
		}
		if err := f(byID); err != nil {
			return err
		}
		store := make(structs.Objects, 0, len(byID))
		for _, obj := range byID {
			store = append(store, obj)
		}
		return s.commit(store)
	})
}

// CreateObject stores a new object, adding it to the content of its location
// if it has one.
func (s *Storage) CreateObject(obj *structs.Object) error {
	if obj.Location == "" {
		return s.objects.Set(obj.Id, obj, false)
	}
	return s.withLocks([]string{obj.Id, obj.Location}, func() error {
		if exists, err := s.objects.Has(obj.Id); err != nil {
			return mudkit.WithStack(err)
		} else if exists {
			return errors.Wrapf(os.ErrExist, "object %q", obj.Id)
		}
		loc, err := s.GetObject(obj.Location)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if loc.Content == nil {
			loc.Content = map[string]bool{}
		}
		loc.Content[obj.Id] = true
		return s.commit(structs.Objects{obj, loc})
	})
}

// EnsureObject returns the object with the ID of obj, creating obj if it
// doesn't exist.
func (s *Storage) EnsureObject(obj *structs.Object) (*structs.Object, error) {
	existing, err := s.GetObject(obj.Id)
	if err == nil {
		return existing, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, mudkit.WithStack(err)
	}
	if err := s.CreateObject(obj); errors.Is(err, os.ErrExist) {
		return s.GetObject(obj.Id)
	} else if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return obj, nil
}

// MoveObject moves the object with id into dest, unplacing it. Moving an
// object into itself or anything it contains fails with ErrCycle.
func (s *Storage) MoveObject(id string, dest string) (*structs.Object, error) {
	obj, err := s.GetObject(id)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	for cur := dest; cur != ""; {
		if cur == id {
			return nil, mudkit.WithStack(ErrCycle)
		}
		loc, err := s.GetObject(cur)
		if err != nil {
			return nil, mudkit.WithStack(err)
		}
		cur = loc.Location
	}
	from := obj.Location
	if from == dest {
		return obj, nil
	}
	ids := []string{id, dest}
	if from != "" {
		ids = append(ids, from)
	}
	if err := s.WithObjects(ids, func(objs map[string]*structs.Object) error {
		obj = objs[id]
		if obj.Location != from {
			return mudkit.WithStack(ErrMoved)
		}
		if from != "" {
			delete(objs[from].Content, id)
		}
		to := objs[dest]
		if to.Content == nil {
			to.Content = map[string]bool{}
		}
		to.Content[id] = true
		obj.Location = dest
		obj.Placed = ""
		return nil
	}); err != nil {
		return nil, err
	}
	return obj, nil
}

// RemoveObject deletes the object with id, failing with ErrNotEmpty if it
// contains anything.
func (s *Storage) RemoveObject(id string) error {
	obj, err := s.GetObject(id)
	if err != nil {
		return mudkit.WithStack(err)
	}
	ids := []string{id}
	if obj.Location != "" {
		ids = append(ids, obj.Location)
	}
	return s.withLocks(ids, func() error {
		objs, err := s.GetObjects(ids...)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if obj = objs[0]; len(obj.Content) > 0 {
			return mudkit.WithStack(ErrNotEmpty)
		}
		if len(objs) == 1 {
			return s.commit(nil, id)
		}
		if obj.Location != objs[1].Id {
			return mudkit.WithStack(ErrMoved)
		}
		delete(objs[1].Content, id)
		return s.commit(structs.Objects{objs[1]}, id)
	})
}
