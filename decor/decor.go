// Package decor describes objects placed as part of a room, rather than lying
// around in it.
package decor

import (
	"math/rand/v2"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zond/mudkit/lang"
)

const (
	DefaultPosition = "here"
	MaxPositionLen  = 50
	// Anyone in a decorator list lets everyone decorate.
	Anyone = "*"
)

// Error is a problem with what the player asked for, meant for the player.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrPositionTooLong Error = "Please keep your positional description below 50 characters."
)

type Named interface {
	GetName() string
}

type Placeable interface {
	Named
	GetPlaced() string
}

// ParsePosition returns the position described by s, DefaultPosition when
// empty, without trailing punctuation.
func ParsePosition(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultPosition, nil
	}
	if utf8.RuneCountInString(s) > MaxPositionLen {
		return "", ErrPositionTooLong
	}
	if s = lang.TrimSentence(s); s == "" {
		return DefaultPosition, nil
	}
	return s, nil
}

// CanDecorate reports whether doer may place things in a room with the given
// owner and decorators.
func CanDecorate(owner string, decorators map[string]bool, doer string) bool {
	return doer != "" && (doer == owner || decorators[doer] || decorators[Anyone])
}

// RandomSwap swaps one sentence in four.
func RandomSwap() bool {
	return rand.IntN(4) == 0
}

// Describe composes a sentence per position the placed items are at, in the
// order the positions first appear. When swap returns true the position leads
// the sentence. Unplaced items are ignored.
func Describe(items []Placeable, swap func() bool) string {
	positions := []string{}
	names := map[string][]string{}
	for _, item := range items {
		position := item.GetPlaced()
		if position == "" {
			continue
		}
		if _, found := names[position]; !found {
			positions = append(positions, position)
		}
		names[position] = append(names[position], lang.Indef(item.GetName()))
	}
	sentences := make([]string, len(positions))
	for i, position := range positions {
		verb := "is"
		if len(names[position]) > 1 {
			verb = "are"
		}
		list := lang.Enumerator{}.Do(names[position]...)
		var sentence string
		if swap() {
			sentence = position + " " + verb + " " + list + "."
		} else {
			sentence = list + " " + verb + " " + position + "."
		}
		sentences[i] = lang.Capitalize(sentence)
	}
	return strings.Join(sentences, " ")
}

// Things lists items grouped by name with counts, sorted by name: "a ball and
// two red apples".
func Things[T Named](items []T) string {
	counts := map[string]int{}
	for _, item := range items {
		counts[item.GetName()]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		names[i] = lang.Card(counts[name], name)
	}
	return lang.Enumerator{}.Do(names...)
}

// Unplaced returns the items not placed as decor.
func Unplaced[T Placeable](items []T) []T {
	result := []T{}
	for _, item := range items {
		if item.GetPlaced() == "" {
			result = append(result, item)
		}
	}
	return result
}
