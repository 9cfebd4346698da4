package clothing

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/zond/mudkit"
	"gopkg.in/yaml.v3"

	goccy "github.com/goccy/go-json"
)

// Type is a clothing type tag, e.g. "hat" or "top".
type Type string

// NoType marks an object that isn't clothing.
const NoType Type = ""

// ParseType normalizes a tag into a Type.
func ParseType(s string) Type {
	return Type(strings.ToLower(strings.TrimSpace(s)))
}

// Config holds the clothing rules. A Config must not be modified after it has
// been handed to a Handler.
type Config struct {
	// TagCategory is the tag category holding the clothing type of an object.
	TagCategory string
	// StyleMaxLength is the maximum length of worn styles, 0 disables them.
	StyleMaxLength int
	// TypeOrder is the display order of clothing types, empty disables sorting.
	TypeOrder []Type
	// TotalLimit is the maximum number of worn items, 0 for unlimited.
	TotalLimit int
	// TypeLimits is the maximum number of worn items per type.
	TypeLimits map[Type]int
	// AutoCover maps a type to the already worn types it covers when put on.
	AutoCover map[Type][]Type
	// NoCover are the types that can't be used to cover things.
	NoCover []Type
	// Types optionally closes the type vocabulary. Tags outside it are NoType.
	Types []Type
}

func DefaultConfig() *Config {
	return &Config{
		TagCategory:    "clothing",
		StyleMaxLength: 50,
		TypeOrder: []Type{
			"hat",
			"jewelry",
			"top",
			"undershirt",
			"gloves",
			"fullbody",
			"bottom",
			"underpants",
			"socks",
			"shoes",
			"accessory",
		},
		TotalLimit: 20,
		TypeLimits: map[Type]int{"hat": 1, "gloves": 1, "socks": 1, "shoes": 1},
		AutoCover: map[Type][]Type{
			"top":      {"undershirt"},
			"bottom":   {"underpants"},
			"fullbody": {"undershirt", "underpants"},
			"shoes":    {"socks"},
		},
		NoCover: []Type{"jewelry"},
	}
}

// TypeOf returns the clothing type of t, or NoType.
func (c *Config) TypeOf(t Tagged) Type {
	typ := ParseType(t.Tag(c.TagCategory))
	if typ == NoType {
		return NoType
	}
	if len(c.Types) > 0 && !slices.Contains(c.Types, typ) {
		return NoType
	}
	return typ
}

func (c *Config) Clone() *Config {
	result := &Config{
		TagCategory:    c.TagCategory,
		StyleMaxLength: c.StyleMaxLength,
		TypeOrder:      slices.Clone(c.TypeOrder),
		TotalLimit:     c.TotalLimit,
		TypeLimits:     maps.Clone(c.TypeLimits),
		AutoCover:      map[Type][]Type{},
		NoCover:        slices.Clone(c.NoCover),
		Types:          slices.Clone(c.Types),
	}
	for typ, covered := range c.AutoCover {
		result.AutoCover[typ] = slices.Clone(covered)
	}
	return result
}

// configFile is the on-disk format. Absent fields keep their defaults, present
// fields replace them wholesale.
type configFile struct {
	TagCategory    *string         `json:"tagCategory" yaml:"tagCategory"`
	StyleMaxLength *int            `json:"styleMaxLength" yaml:"styleMaxLength"`
	TypeOrder      *[]Type         `json:"typeOrder" yaml:"typeOrder"`
	TotalLimit     *int            `json:"totalLimit" yaml:"totalLimit"`
	TypeLimits     map[Type]int    `json:"typeLimits" yaml:"typeLimits"`
	AutoCover      map[Type][]Type `json:"autoCover" yaml:"autoCover"`
	NoCover        *[]Type         `json:"noCover" yaml:"noCover"`
	Types          *[]Type         `json:"types" yaml:"types"`
}

func (f *configFile) apply(c *Config) {
	if f.TagCategory != nil {
		c.TagCategory = *f.TagCategory
	}
	if f.StyleMaxLength != nil {
		c.StyleMaxLength = *f.StyleMaxLength
	}
	if f.TypeOrder != nil {
		c.TypeOrder = normalize(*f.TypeOrder)
	}
	if f.TotalLimit != nil {
		c.TotalLimit = *f.TotalLimit
	}
	if f.TypeLimits != nil {
		c.TypeLimits = map[Type]int{}
		for typ, limit := range f.TypeLimits {
			c.TypeLimits[ParseType(string(typ))] = limit
		}
	}
	if f.AutoCover != nil {
		c.AutoCover = map[Type][]Type{}
		for typ, covered := range f.AutoCover {
			c.AutoCover[ParseType(string(typ))] = normalize(covered)
		}
	}
	if f.NoCover != nil {
		c.NoCover = normalize(*f.NoCover)
	}
	if f.Types != nil {
		c.Types = normalize(*f.Types)
	}
}

func normalize(types []Type) []Type {
	result := make([]Type, 0, len(types))
	for _, typ := range types {
		if parsed := ParseType(string(typ)); parsed != NoType {
			result = append(result, parsed)
		}
	}
	return result
}

// ParseConfig overlays the JSON or YAML in b on the default config.
func ParseConfig(b []byte, yamlFormat bool) (*Config, error) {
	f := &configFile{}
	if yamlFormat {
		if err := yaml.Unmarshal(b, f); err != nil {
			return nil, mudkit.WithStack(err)
		}
	} else {
		if err := goccy.Unmarshal(b, f); err != nil {
			return nil, mudkit.WithStack(err)
		}
	}
	c := DefaultConfig()
	f.apply(c)
	return c, nil
}

// LoadConfig reads a config file, choosing YAML or JSON by extension.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, mudkit.WithStack(err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return ParseConfig(b, ext == ".yaml" || ext == ".yml")
}
