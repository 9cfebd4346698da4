package decor

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type item struct {
	name   string
	placed string
}

func (i item) GetName() string {
	return i.name
}

func (i item) GetPlaced() string {
	return i.placed
}

func TestParsePosition(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
		err  error
	}{
		{"", DefaultPosition, nil},
		{"  ", DefaultPosition, nil},
		{"on the wall.", "on the wall", nil},
		{"on the wall!!", "on the wall!", nil},
		{"hanging from the south wall", "hanging from the south wall", nil},
		{".", DefaultPosition, nil},
		{strings.Repeat("x", MaxPositionLen), strings.Repeat("x", MaxPositionLen), nil},
		{strings.Repeat("x", MaxPositionLen+1), "", ErrPositionTooLong},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParsePosition(tc.in)
			if err != tc.err {
				t.Fatalf("got %v, want %v", err, tc.err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestCanDecorate(t *testing.T) {
	decorators := map[string]bool{"helper": true}
	for _, tc := range []struct {
		doer       string
		decorators map[string]bool
		want       bool
	}{
		{"owner", nil, true},
		{"helper", decorators, true},
		{"stranger", decorators, false},
		{"stranger", map[string]bool{Anyone: true}, true},
		{"", map[string]bool{Anyone: true}, false},
	} {
		if got := CanDecorate("owner", tc.decorators, tc.doer); got != tc.want {
			t.Errorf("CanDecorate(%q, %v) = %v, want %v", tc.doer, tc.decorators, got, tc.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	items := []Placeable{
		item{"painting", "on the wall"},
		item{"ball", ""},
		item{"rug", "here"},
		item{"mirror", "on the wall"},
	}
	never := func() bool { return false }
	always := func() bool { return true }
	if got, want := Describe(items, never), "A painting and a mirror are on the wall. A rug is here."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := Describe(items, always), "On the wall are a painting and a mirror. Here is a rug."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Describe(nil, never); got != "" {
		t.Errorf("got %q", got)
	}
}

func TestThings(t *testing.T) {
	items := []item{{"red apple", ""}, {"ball", ""}, {"red apple", ""}, {"umbrella", "here"}}
	unplaced := Unplaced(items)
	if diff := cmp.Diff(unplaced, items[:3], cmp.AllowUnexported(item{})); diff != "" {
		t.Errorf("Unplaced: %s", diff)
	}
	if got, want := Things(unplaced), "a ball and two red apples"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Things([]item{}); got != "" {
		t.Errorf("got %q", got)
	}
}
