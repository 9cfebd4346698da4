// Package multimatch lets a player pick one of several objects matching what
// they typed.
package multimatch

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zond/mudkit"
)

const (
	Cancel = "c"
	Prompt = "Enter a number (or c to cancel):"
)

// Error is why no choice was made, meant for the player.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrCancelled Error = "Action cancelled."
	ErrInvalid   Error = "Invalid option, cancelling."
)

type Named interface {
	GetName() string
}

type LineReader interface {
	ReadLine() (string, error)
}

// Message lists matches numbered from 1, each followed by extra(match) when
// extra is given.
func Message[T Named](pattern string, matches []T, extra func(T) string) string {
	lines := make([]string, 0, len(matches)+1)
	lines = append(lines, fmt.Sprintf("Which %s do you mean?", pattern))
	for i, match := range matches {
		info := ""
		if extra != nil {
			info = extra(match)
		}
		lines = append(lines, fmt.Sprintf(" %d. %s%s", i+1, match.GetName(), info))
	}
	return strings.Join(lines, "\n")
}

// Choose returns the match option selects.
func Choose[T any](option string, matches []T) (T, error) {
	var zero T
	option = strings.TrimSpace(option)
	if strings.EqualFold(option, Cancel) {
		return zero, ErrCancelled
	}
	idx, err := strconv.Atoi(option)
	if err != nil || idx < 1 || idx > len(matches) {
		return zero, ErrInvalid
	}
	return matches[idx-1], nil
}

// Select returns the only match, or asks which one is meant when there are
// several. There must be at least one match.
func Select[T Named](w io.Writer, r LineReader, pattern string, matches []T, extra func(T) string) (T, error) {
	if len(matches) == 1 {
		return matches[0], nil
	}
	if _, err := fmt.Fprintln(w, Message(pattern, matches, extra)); err != nil {
		var zero T
		return zero, mudkit.WithStack(err)
	}
	if _, err := fmt.Fprintln(w, Prompt); err != nil {
		var zero T
		return zero, mudkit.WithStack(err)
	}
	option, err := r.ReadLine()
	if err != nil {
		var zero T
		return zero, mudkit.WithStack(err)
	}
	return Choose(option, matches)
}
