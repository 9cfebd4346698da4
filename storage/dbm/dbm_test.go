package dbm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zond/mudkit/structs"
)

func TestGetStruct(t *testing.T) {
	WithTypeHash(t, func(th *TypeHash[structs.User, *structs.User]) {
		want := &structs.User{Name: "a", Object: "o"}
		if err := th.Set("a", want, true); err != nil {
			t.Fatal(err)
		}
		got, err := th.Get("a")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("Get: %s", diff)
		}
		if _, err := th.Get("b"); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want %v", err, os.ErrNotExist)
		}
		if err := th.Set("a", want, false); err == nil {
			t.Errorf("overwrote without overwrite")
		}
	})
}

func TestGetStructMulti(t *testing.T) {
	WithTypeHash(t, func(th *TypeHash[structs.User, *structs.User]) {
		want := map[string]*structs.User{"s": {Name: "s"}, "s2": {Name: "s2"}}
		for _, u := range want {
			if err := th.Set(u.Name, u, true); err != nil {
				t.Fatal(err)
			}
		}
		got, err := th.GetMulti(map[string]bool{"s": true, "s2": true, "missing": true})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("GetMulti: %s", diff)
		}
	})
}

func TestEach(t *testing.T) {
	WithTypeHash(t, func(th *TypeHash[structs.User, *structs.User]) {
		want := map[string]bool{}
		for i := 0; i < 20; i++ {
			name := fmt.Sprintf("user%d", i)
			want[name] = true
			if err := th.Set(name, &structs.User{Name: name}, true); err != nil {
				t.Fatal(err)
			}
		}
		got := map[string]bool{}
		if err := th.Each(func(k string, u *structs.User) (bool, error) {
			if k != u.Name {
				t.Errorf("got %q for key %q", u.Name, k)
			}
			got[k] = true
			return true, nil
		}); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("Each: %s", diff)
		}
		count := 0
		if err := th.Each(func(string, *structs.User) (bool, error) {
			count++
			return count < 5, nil
		}); err != nil {
			t.Fatal(err)
		}
		if count != 5 {
			t.Errorf("got %v calls, want 5", count)
		}
	})
}

func TestProc(t *testing.T) {
	WithTypeHash(t, func(th *TypeHash[structs.User, *structs.User]) {
		want := map[string]*structs.User{"s": {Name: "s"}, "s2": {Name: "s2"}}
		for _, u := range want {
			if err := th.Set(u.Name, u, true); err != nil {
				t.Fatal(err)
			}
		}
		wantErr := fmt.Errorf("wantErr")
		if err := th.Proc([]Proc{
			th.SProc("s", func(s string, u *structs.User) (*structs.User, error) {
				u.Object = "changed"
				return u, nil
			}),
			th.SProc("s2", func(s string, u *structs.User) (*structs.User, error) {
				return nil, wantErr
			}),
		}, true); !errors.Is(err, wantErr) {
			t.Errorf("got %v, want %v", err, wantErr)
		}
		got, err := th.GetMulti(map[string]bool{"s": true, "s2": true})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("aborted Proc wrote: %s", diff)
		}
		if err := th.Proc([]Proc{
			th.SProc("s", func(s string, u *structs.User) (*structs.User, error) {
				u.Object = "o1"
				return u, nil
			}),
			th.SProc("s2", func(s string, u *structs.User) (*structs.User, error) {
				return nil, nil
			}),
			th.SProc("s3", func(s string, u *structs.User) (*structs.User, error) {
				if u != nil {
					t.Errorf("got %+v for missing key", u)
				}
				return &structs.User{Name: s}, nil
			}),
		}, true); err != nil {
			t.Fatal(err)
		}
		got, err = th.GetMulti(map[string]bool{"s": true, "s2": true, "s3": true})
		if err != nil {
			t.Fatal(err)
		}
		want = map[string]*structs.User{"s": {Name: "s", Object: "o1"}, "s3": {Name: "s3"}}
		if diff := cmp.Diff(got, want); diff != "" {
			t.Errorf("Proc: %s", diff)
		}
	})
}

func TestFirst(t *testing.T) {
	WithTypeTree(t, func(tt *TypeTree[structs.Event, *structs.Event]) {
		for _, vInt := range rand.Perm(100) {
			v := uint32(vInt)
			key := make([]byte, binary.Size(v))
			binary.BigEndian.PutUint32(key, v)
			if err := tt.Set(string(key), &structs.Event{At: uint64(vInt)}, true); err != nil {
				t.Fatal(err)
			}
		}
		for want := 0; want < 100; want++ {
			v := uint32(want)
			wantKey := make([]byte, binary.Size(v))
			binary.BigEndian.PutUint32(wantKey, v)
			ev, err := tt.First()
			if err != nil {
				t.Fatal(err)
			}
			if ev.At != uint64(want) {
				t.Errorf("got %v, want %v", ev.At, want)
			}
			if err := tt.Del(string(wantKey)); err != nil {
				t.Fatal(err)
			}
		}
		if _, err := tt.First(); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("got %v, want %v", err, os.ErrNotExist)
		}
	})
}
