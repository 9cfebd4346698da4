package storage

import (
	"path/filepath"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/storage/dbm"
	"github.com/zond/mudkit/structs"
)

// opener opens a series of databases in Dir, stopping at the first error.
type opener struct {
	Dir    string
	Err    error
	closer []func() error
}

func (o *opener) path(name string) string {
	return filepath.Join(o.Dir, name)
}

func (o *opener) OpenHash(name string) *dbm.Hash {
	if o.Err != nil {
		return nil
	}
	h, err := dbm.OpenHash(o.path(name))
	if err != nil {
		o.Err = mudkit.WithStack(err)
		return nil
	}
	o.closer = append(o.closer, h.Close)
	return h
}

func openTypeHash[T any, S structs.Serializable[T]](o *opener, name string) *dbm.TypeHash[T, S] {
	if o.Err != nil {
		return nil
	}
	h, err := dbm.OpenTypeHash[T, S](o.path(name))
	if err != nil {
		o.Err = mudkit.WithStack(err)
		return nil
	}
	o.closer = append(o.closer, h.Close)
	return h
}

func openTypeTree[T any, S structs.Serializable[T]](o *opener, name string) *dbm.TypeTree[T, S] {
	if o.Err != nil {
		return nil
	}
	t, err := dbm.OpenTypeTree[T, S](o.path(name))
	if err != nil {
		o.Err = mudkit.WithStack(err)
		return nil
	}
	o.closer = append(o.closer, t.Close)
	return t
}

// Abort closes everything opened so far, used when a later open failed.
func (o *opener) Abort() {
	for _, c := range o.closer {
		c()
	}
	o.closer = nil
}
