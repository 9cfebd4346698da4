// Package features describes the appearance of objects as a list of named
// features, e.g. "long black hair" or "a wooden handle".
package features

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/zond/mudkit/lang"
)

// ValueKey holds the values of features without a format.
const ValueKey = "value"

// Error is a feature misuse meant for the user.
type Error string

func (e Error) Error() string {
	return string(e)
}

var (
	formatKeyPattern = regexp.MustCompile(`\{([^{}]+)\}`)
)

// Feature is one named part of an appearance. With a Format, keys in braces
// are replaced by their Values, otherwise the ValueKey values are used.
type Feature struct {
	Format  string              `json:",omitempty"`
	Prefix  string              `json:",omitempty"`
	Article bool                `json:",omitempty"`
	Values  map[string][]string `json:",omitempty"`
	// Defaults holds values replaced by soft sets and merges.
	Defaults map[string][]string `json:",omitempty"`
}

func (f *Feature) describe(name string) string {
	var s string
	if f.Format != "" {
		s = formatKeyPattern.ReplaceAllStringFunc(f.Format, func(match string) string {
			return lang.Enumerator{}.Do(f.Values[match[1:len(match)-1]]...)
		})
	} else {
		s = lang.Enumerator{}.Do(f.Values[ValueKey]...)
	}
	if f.Prefix != "" {
		s = fmt.Sprintf("%s %s", f.Prefix, s)
	}
	s = strings.Join(strings.Fields(s), " ")
	if f.Article && s != "" {
		s = lang.Indef(s)
	}
	if s == "" {
		return name
	}
	return fmt.Sprintf("%s %s", s, name)
}

// values returns Values, which decoding drops when empty.
func (f *Feature) values() map[string][]string {
	if f.Values == nil {
		f.Values = map[string][]string{}
	}
	return f.Values
}

func (f *Feature) remember(key string) {
	if f.Defaults == nil {
		f.Defaults = map[string][]string{}
	}
	if _, found := f.Defaults[key]; !found {
		f.Defaults[key] = slices.Clone(f.Values[key])
	}
}

func (f *Feature) reset() {
	for key, values := range f.Defaults {
		if len(values) == 0 {
			delete(f.Values, key)
		} else {
			f.values()[key] = values
		}
	}
	f.Defaults = nil
}

// Set is the ordered features of one object.
type Set struct {
	Order    []string
	Features map[string]*Feature
}

func New() *Set {
	return &Set{Features: map[string]*Feature{}}
}

// All returns the feature names in the order they were added.
func (s *Set) All() []string {
	return slices.Clone(s.Order)
}

// Has reports whether the feature exists.
func (s *Set) Has(name string) bool {
	_, found := s.Features[name]
	return found
}

// View describes all features in one line.
func (s *Set) View() string {
	descs := make([]string, 0, len(s.Order))
	for _, name := range s.Order {
		descs = append(descs, s.Features[name].describe(name))
	}
	return lang.Enumerator{}.Do(descs...)
}

// Get describes one feature.
func (s *Set) Get(name string) (string, bool) {
	f, found := s.Features[name]
	if !found {
		return "", false
	}
	return f.describe(name), true
}

// GetValues returns a copy of the values of a feature.
func (s *Set) GetValues(name string) (map[string][]string, bool) {
	f, found := s.Features[name]
	if !found {
		return nil, false
	}
	result := map[string][]string{}
	for key, values := range f.Values {
		result[key] = slices.Clone(values)
	}
	return result, true
}

// Options returns the format keys of a feature, or nil for features without
// a format.
func (s *Set) Options(name string) []string {
	f, found := s.Features[name]
	if !found || f.Format == "" {
		return nil
	}
	result := make([]string, 0, len(f.Values))
	for key := range f.Values {
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}

// Add creates a feature, replacing an existing one only when force is set.
func (s *Set) Add(name string, f Feature, force bool) error {
	if s.Has(name) && !force {
		return Error(fmt.Sprintf("Feature %q already exists and would be overwritten.", name))
	}
	if f.Format == "" && len(f.Values[ValueKey]) == 0 {
		return Error("No valid values provided when adding a feature.")
	}
	added := &Feature{
		Format:  f.Format,
		Prefix:  f.Prefix,
		Article: f.Article,
		Values:  map[string][]string{},
	}
	for key, values := range f.Values {
		added.Values[key] = slices.Clone(values)
	}
	if s.Features == nil {
		s.Features = map[string]*Feature{}
	}
	if !s.Has(name) {
		s.Order = append(s.Order, name)
	}
	s.Features[name] = added
	return nil
}

// Set replaces values of an existing feature. Soft sets remember the replaced
// values so that Reset can restore them.
func (s *Set) Set(name string, soft bool, values map[string][]string) error {
	f, found := s.Features[name]
	if !found {
		return Error(fmt.Sprintf("Feature %q does not exist on this object, use add instead.", name))
	}
	for key, value := range values {
		if soft {
			f.remember(key)
		}
		f.values()[key] = slices.Clone(value)
	}
	return nil
}

// Merge adds values to a feature, creating it when missing. A hard merge
// first restores values replaced by soft ones.
func (s *Set) Merge(name string, soft bool, values map[string][]string) error {
	f, found := s.Features[name]
	if !found {
		return s.Add(name, Feature{Values: values}, false)
	}
	if !soft && len(f.Defaults) > 0 {
		f.reset()
	}
	current := f.values()
	for key, add := range values {
		if soft {
			f.remember(key)
		}
		for _, value := range add {
			if !slices.Contains(current[key], value) {
				current[key] = append(current[key], value)
			}
		}
	}
	return nil
}

// Remove deletes a feature, reporting whether it existed.
func (s *Set) Remove(name string) bool {
	if !s.Has(name) {
		return false
	}
	delete(s.Features, name)
	s.Order = slices.DeleteFunc(s.Order, func(n string) bool {
		return n == name
	})
	return true
}

// Reset restores values replaced by soft sets and merges, of the named
// features or of all features.
func (s *Set) Reset(names ...string) {
	if len(names) == 0 {
		names = s.Order
	}
	for _, name := range names {
		if f, found := s.Features[name]; found {
			f.reset()
		}
	}
}

func (s *Set) Clear() {
	s.Order = nil
	s.Features = map[string]*Feature{}
}
