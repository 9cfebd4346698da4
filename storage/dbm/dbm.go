package dbm

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/estraier/tkrzw-go"
	"github.com/zond/mudkit"
	"github.com/zond/mudkit/structs"
)

type Hash struct {
	dbm   *tkrzw.DBM
	mutex *sync.RWMutex
}

func (h *Hash) Get(k string) ([]byte, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	b, stat := h.dbm.Get(k)
	if stat.GetCode() == tkrzw.StatusNotFoundError {
		return nil, mudkit.WithStack(os.ErrNotExist)
	} else if !stat.IsOK() {
		return nil, mudkit.WithStack(stat)
	}
	return b, nil
}

func (h *Hash) Has(k string) (bool, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, stat := h.dbm.Get(k)
	if stat.GetCode() == tkrzw.StatusNotFoundError {
		return false, nil
	} else if !stat.IsOK() {
		return false, mudkit.WithStack(stat)
	}
	return true, nil
}

func (h *Hash) Set(k string, v []byte, overwrite bool) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if stat := h.dbm.Set(k, v, overwrite); stat.GetCode() == tkrzw.StatusDuplicationError {
		return mudkit.WithStack(os.ErrExist)
	} else if !stat.IsOK() {
		return mudkit.WithStack(stat)
	}
	return nil
}

func (h *Hash) Del(k string) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if stat := h.dbm.Remove(k); stat.GetCode() == tkrzw.StatusNotFoundError {
		return mudkit.WithStack(os.ErrNotExist)
	} else if !stat.IsOK() {
		return mudkit.WithStack(stat)
	}
	return nil
}

// Each calls f with every key and value until f returns false or an error.
func (h *Hash) Each(f func(k string, v []byte) (bool, error)) error {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	iter := h.dbm.MakeIterator()
	defer iter.Destruct()
	stat := iter.First()
	for ; stat.IsOK(); stat = iter.Next() {
		k, v, getStat := iter.Get()
		if getStat.GetCode() == tkrzw.StatusNotFoundError {
			return nil
		} else if !getStat.IsOK() {
			return mudkit.WithStack(getStat)
		}
		cont, err := f(string(k), v)
		if err != nil {
			return mudkit.WithStack(err)
		}
		if !cont {
			return nil
		}
	}
	if stat.GetCode() != tkrzw.StatusNotFoundError && !stat.IsOK() {
		return mudkit.WithStack(stat)
	}
	return nil
}

func (h *Hash) Close() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if stat := h.dbm.Close(); !stat.IsOK() {
		return mudkit.WithStack(stat)
	}
	return nil
}

type TypeHash[T any, S structs.Serializable[T]] struct {
	*Hash
}

func (h *TypeHash[T, S]) Get(k string) (*T, error) {
	b, err := h.Hash.Get(k)
	if err != nil {
		return nil, err
	}
	t := S(new(T))
	if err := t.Unmarshal(b); err != nil {
		return nil, mudkit.WithStack(err)
	}
	return (*T)(t), nil
}

// GetMulti returns the found values among keys. Missing keys are absent from
// the result.
func (h *TypeHash[T, S]) GetMulti(keys map[string]bool) (map[string]*T, error) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	ids := make([]string, 0, len(keys))
	for key := range keys {
		ids = append(ids, key)
	}
	byteResults := h.dbm.GetMulti(ids)
	results := map[string]*T{}
	for key, byteResult := range byteResults {
		result := S(new(T))
		if err := result.Unmarshal(byteResult); err != nil {
			return nil, mudkit.WithStack(err)
		}
		results[key] = (*T)(result)
	}
	return results, nil
}

func (h *TypeHash[T, S]) Set(k string, v *T, overwrite bool) error {
	b, err := S(v).Marshal()
	if err != nil {
		return mudkit.WithStack(err)
	}
	return h.Hash.Set(k, b, overwrite)
}

// Each calls f with every key and decoded value until f returns false or an
// error.
func (h *TypeHash[T, S]) Each(f func(k string, v *T) (bool, error)) error {
	return h.Hash.Each(func(k string, b []byte) (bool, error) {
		t := S(new(T))
		if err := t.Unmarshal(b); err != nil {
			return false, mudkit.WithStack(err)
		}
		return f(k, (*T)(t))
	})
}

type Proc interface {
	Key() string
	Proc(string, []byte) ([]byte, error)
}

func (h TypeHash[T, S]) SProc(key string, fun func(string, *T) (*T, error)) *SProc[T, S] {
	return &SProc[T, S]{
		K: key,
		F: fun,
	}
}

// SProc is a Proc working on decoded values. F gets nil for missing keys and
// returns nil to remove the key.
type SProc[T any, S structs.Serializable[T]] struct {
	K string
	F func(string, *T) (*T, error)
}

func (j *SProc[T, S]) Key() string {
	return j.K
}

func (j *SProc[T, S]) Proc(k string, v []byte) ([]byte, error) {
	var input *T
	if v != nil {
		input = new(T)
		if err := S(input).Unmarshal(v); err != nil {
			return nil, mudkit.WithStack(err)
		}
	}
	output, err := j.F(k, input)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	if output == nil {
		return nil, nil
	}
	b, err := S(output).Marshal()
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return b, nil
}

// Proc runs all pairs atomically. If any of them fails, nothing is written.
func (h *Hash) Proc(pairs []Proc, write bool) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	outputs := make([][]byte, len(pairs))
	procs := make([]tkrzw.KeyProcPair, len(pairs)*2)
	var abort error
	for index, pair := range pairs {
		procs[index] = tkrzw.KeyProcPair{
			Key: pair.Key(),
			Proc: func(key []byte, value []byte) any {
				if abort != nil {
					return nil
				}
				b, err := pair.Proc(string(key), value)
				if err != nil {
					abort = err
					return nil
				}
				outputs[index] = b
				return nil
			},
		}
	}
	for index, pair := range pairs {
		procs[index+len(pairs)] = tkrzw.KeyProcPair{
			Key: pair.Key(),
			Proc: func(key []byte, value []byte) any {
				if abort != nil {
					return nil
				}
				if outputs[index] == nil {
					if value == nil {
						return nil
					}
					return tkrzw.RemoveBytes
				} else if !bytes.Equal(value, outputs[index]) {
					return outputs[index]
				} else {
					return nil
				}
			},
		}
	}
	if stat := h.dbm.ProcessMulti(procs, write); !stat.IsOK() {
		return mudkit.WithStack(stat)
	}
	return mudkit.WithStack(abort)
}

type Tree struct {
	*Hash
}

type TypeTree[T any, S structs.Serializable[T]] struct {
	*TypeHash[T, S]
}

func (t *TypeTree[T, S]) First() (*T, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	iter := t.dbm.MakeIterator()
	defer iter.Destruct()
	if stat := iter.First(); !stat.IsOK() {
		return nil, mudkit.WithStack(stat)
	}
	_, b, stat := iter.Get()
	if stat.GetCode() == tkrzw.StatusNotFoundError {
		return nil, mudkit.WithStack(os.ErrNotExist)
	} else if !stat.IsOK() {
		return nil, mudkit.WithStack(stat)
	}
	first := S(new(T))
	if err := first.Unmarshal(b); err != nil {
		return nil, mudkit.WithStack(err)
	}
	return (*T)(first), nil
}

func OpenHash(path string) (*Hash, error) {
	dbm := tkrzw.NewDBM()
	stat := dbm.Open(fmt.Sprintf("%s.tkh", path), true, map[string]string{
		"update_mode":      "UPDATE_APPENDING",
		"record_comp_mode": "RECORD_COMP_NONE",
		"restore_mode":     "RESTORE_SYNC|RESTORE_NO_SHORTCUTS|RESTORE_WITH_HARDSYNC",
	})
	if !stat.IsOK() {
		return nil, mudkit.WithStack(stat)
	}
	return &Hash{dbm, &sync.RWMutex{}}, nil
}

func OpenTypeHash[T any, S structs.Serializable[T]](path string) (*TypeHash[T, S], error) {
	h, err := OpenHash(path)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return &TypeHash[T, S]{h}, nil
}

func OpenTree(path string) (*Tree, error) {
	dbm := tkrzw.NewDBM()
	stat := dbm.Open(fmt.Sprintf("%s.tkt", path), true, map[string]string{
		"update_mode":      "UPDATE_APPENDING",
		"record_comp_mode": "RECORD_COMP_NONE",
		"key_comparator":   "LexicalKeyComparator",
	})
	if !stat.IsOK() {
		return nil, mudkit.WithStack(stat)
	}
	return &Tree{&Hash{dbm, &sync.RWMutex{}}}, nil
}

func OpenTypeTree[T any, S structs.Serializable[T]](path string) (*TypeTree[T, S], error) {
	t, err := OpenTree(path)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	return &TypeTree[T, S]{&TypeHash[T, S]{t.Hash}}, nil
}
