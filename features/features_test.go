package features

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
)

func testSet(t *testing.T) *Set {
	t.Helper()
	s := New()
	if err := s.Add("hair", Feature{
		Format: "{length} {color}",
		Values: map[string][]string{"length": {"long"}, "color": {"black"}},
	}, false); err != nil {
		t.Fatal(err)
	}
	if err := s.Add("handle", Feature{
		Article: true,
		Prefix:  "carved",
		Values:  map[string][]string{ValueKey: {"oak"}},
	}, false); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestGet(t *testing.T) {
	s := testSet(t)
	for _, tc := range []struct {
		name string
		want string
	}{
		{"hair", "long black hair"},
		{"handle", "a carved oak handle"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, found := s.Get(tc.name)
			if !found {
				t.Fatalf("%q not found", tc.name)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
	if _, found := s.Get("tail"); found {
		t.Errorf("found missing feature")
	}
	if got, want := s.View(), "long black hair and a carved oak handle"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAdd(t *testing.T) {
	s := testSet(t)
	if err := s.Add("hair", Feature{Values: map[string][]string{ValueKey: {"red"}}}, false); err == nil {
		t.Errorf("overwrote without force")
	}
	if err := s.Add("eyes", Feature{}, false); err == nil {
		t.Errorf("added without values")
	} else if _, ok := err.(Error); !ok {
		t.Errorf("got %T, want Error", err)
	}
	if err := s.Add("hair", Feature{Values: map[string][]string{ValueKey: {"red"}}}, true); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("hair"); got != "red hair" {
		t.Errorf("got %q", got)
	}
	if diff := cmp.Diff(s.All(), []string{"hair", "handle"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
}

func TestOptions(t *testing.T) {
	s := testSet(t)
	if diff := cmp.Diff(s.Options("hair"), []string{"color", "length"}); diff != "" {
		t.Errorf("Options: %s", diff)
	}
	if got := s.Options("handle"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	if got := s.Options("tail"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestSoftSetAndReset(t *testing.T) {
	s := testSet(t)
	if err := s.Set("hair", true, map[string][]string{"color": {"blue"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("hair", true, map[string][]string{"color": {"green"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("hair"); got != "long green hair" {
		t.Errorf("got %q", got)
	}
	s.Reset()
	if got, _ := s.Get("hair"); got != "long black hair" {
		t.Errorf("got %q", got)
	}
	if err := s.Set("tail", false, nil); err == nil {
		t.Errorf("set missing feature")
	}
}

func TestMerge(t *testing.T) {
	s := testSet(t)
	if err := s.Merge("hair", false, map[string][]string{"color": {"grey", "black"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("hair"); got != "long black and grey hair" {
		t.Errorf("got %q", got)
	}
	if err := s.Merge("hair", true, map[string][]string{"color": {"pink"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("hair"); got != "long black, grey, and pink hair" {
		t.Errorf("got %q", got)
	}
	// A hard merge drops the soft values first.
	if err := s.Merge("hair", false, map[string][]string{"length": {"curly"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("hair"); got != "long and curly black and grey hair" {
		t.Errorf("got %q", got)
	}
	if err := s.Merge("scales", false, map[string][]string{ValueKey: {"shiny"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("scales"); got != "shiny scales" {
		t.Errorf("got %q", got)
	}
}

func TestRemoveAndClear(t *testing.T) {
	s := testSet(t)
	if !s.Remove("hair") {
		t.Errorf("didn't remove hair")
	}
	if s.Remove("hair") {
		t.Errorf("removed hair twice")
	}
	if diff := cmp.Diff(s.All(), []string{"handle"}); diff != "" {
		t.Errorf("All: %s", diff)
	}
	s.Clear()
	if len(s.All()) != 0 || s.View() != "" {
		t.Errorf("got %v %q", s.All(), s.View())
	}
}

func TestChangeAfterDecoding(t *testing.T) {
	for _, tc := range []struct {
		name   string
		change func(s *Set) error
		want   string
	}{
		{
			name: "set",
			change: func(s *Set) error {
				return s.Set("eyes", false, map[string][]string{"color": {"green"}})
			},
			want: "green eyes",
		},
		{
			name: "soft set then reset",
			change: func(s *Set) error {
				if err := s.Set("eyes", true, map[string][]string{"color": {"green"}}); err != nil {
					return err
				}
				s.Reset("eyes")
				return nil
			},
			want: "eyes",
		},
		{
			name: "merge",
			change: func(s *Set) error {
				return s.Merge("eyes", false, map[string][]string{"color": {"grey", "blue"}})
			},
			want: "grey and blue eyes",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			s := New()
			if err := s.Add("eyes", Feature{Format: "{color}"}, false); err != nil {
				t.Fatal(err)
			}
			b, err := json.Marshal(s)
			if err != nil {
				t.Fatal(err)
			}
			decoded := &Set{}
			if err := json.Unmarshal(b, decoded); err != nil {
				t.Fatal(err)
			}
			if err := tc.change(decoded); err != nil {
				t.Fatal(err)
			}
			if got, _ := decoded.Get("eyes"); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
