package lang

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gertd/go-pluralize"
)

const (
	DefaultPattern   = "%s"
	DefaultSeparator = ","
	DefaultOperator  = "and"
)

var (
	pluralizer = pluralize.NewClient()

	// Words starting with a vowel letter but a consonant sound.
	consonantSoundPrefixes = []string{"uni", "use", "usu", "uti", "ure", "eu", "ewe", "one", "once"}
	// Words starting with a consonant letter but a vowel sound.
	vowelSoundPrefixes = []string{"hour", "honest", "honor", "honour", "heir"}
	smallNumbers       = []string{"no", "one", "two", "three"}
)

type Tense int

const (
	NoTense Tense = iota
	Present
	Past
)

type Enumerator struct {
	Pattern   string
	Separator string
	Operator  string
	Tense     Tense
}

// Do joins elements into an English list: "a", "a and b", "a, b, and c".
func (e Enumerator) Do(elements ...string) string {
	pattern, separator, operator := DefaultPattern, DefaultSeparator, DefaultOperator
	if e.Pattern != "" {
		pattern = e.Pattern
	}
	if e.Separator != "" {
		separator = e.Separator
	}
	if e.Operator != "" {
		operator = e.Operator
	}
	res := &bytes.Buffer{}
	for idx, element := range elements {
		fmt.Fprintf(res, pattern, element)
		switch {
		case len(elements) == 2 && idx == 0:
			fmt.Fprintf(res, " %s ", operator)
		case idx+2 < len(elements):
			fmt.Fprintf(res, "%s ", separator)
		case idx+2 == len(elements):
			fmt.Fprintf(res, "%s %s ", separator, operator)
		}
	}
	switch e.Tense {
	case Present:
		if len(elements) == 1 {
			res.WriteString(" is")
		} else {
			res.WriteString(" are")
		}
	case Past:
		if len(elements) == 1 {
			res.WriteString(" was")
		} else {
			res.WriteString(" were")
		}
	}
	return res.String()
}

// Article returns the indefinite article ("a" or "an") to put before word.
func Article(word string) string {
	lower := strings.ToLower(strings.TrimSpace(word))
	if lower == "" {
		return "a"
	}
	for _, prefix := range consonantSoundPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "a"
		}
	}
	for _, prefix := range vowelSoundPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return "an"
		}
	}
	if strings.HasPrefix(lower, "8") || strings.HasPrefix(lower, "11") || strings.HasPrefix(lower, "18") {
		return "an"
	}
	if strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an"
	}
	return "a"
}

// Indef prefixes word with its indefinite article.
func Indef(word string) string {
	if word == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", Article(word), word)
}

func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Decapitalize lowercases the first rune of s.
func Decapitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

func Plural(word string) string {
	return pluralizer.Plural(word)
}

// Card renders a counted noun: "no swords", "a sword", "two swords", "4 swords".
func Card(count int, word string) string {
	switch {
	case count == 1:
		return Indef(word)
	case count >= 0 && count < len(smallNumbers):
		return fmt.Sprintf("%s %s", smallNumbers[count], Plural(word))
	default:
		return fmt.Sprintf("%d %s", count, Plural(word))
	}
}

// TrimSentence removes one trailing sentence punctuation mark.
func TrimSentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if strings.ContainsRune(".!?,;:", rune(s[len(s)-1])) {
		return s[:len(s)-1]
	}
	return s
}
