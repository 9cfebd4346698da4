package game

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// validUsernameRE matches valid usernames: 1-16 chars, starts with letter,
	// contains only letters, numbers, hyphens, or underscores.
	validUsernameRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,15}$`)
	// validChannelRE matches normalized channel names.
	validChannelRE = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
)

// InvalidUsernameError is returned when a username fails validation.
type InvalidUsernameError struct{}

func (e InvalidUsernameError) Error() string {
	return "Invalid username. Must be 1-16 characters, start with a letter, and contain only letters, numbers, hyphens, or underscores."
}

// validateUsername checks if a username is valid.
// Returns nil if valid, or an InvalidUsernameError describing the problem.
func validateUsername(name string) error {
	if !validUsernameRE.MatchString(name) {
		return InvalidUsernameError{}
	}
	return nil
}

// InvalidChannelError is returned when a channel name fails validation.
type InvalidChannelError struct {
	Name string
}

func (e InvalidChannelError) Error() string {
	return fmt.Sprintf("Invalid channel name %q. Must be 1-32 characters, start with a letter, and contain only letters, numbers, hyphens, or underscores.", e.Name)
}

// normalizeChannel returns the lower case channel name, or an
// InvalidChannelError.
func normalizeChannel(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if !validChannelRE.MatchString(normalized) {
		return "", InvalidChannelError{Name: name}
	}
	return normalized, nil
}
