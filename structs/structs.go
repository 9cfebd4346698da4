package structs

import (
	"encoding/binary"
	"slices"
	"strings"
	"time"

	"github.com/zond/mudkit"
	"github.com/zond/mudkit/clothing"
	"github.com/zond/mudkit/features"
	"github.com/zond/mudkit/growth"
	"github.com/zond/mudkit/lang"

	goccy "github.com/goccy/go-json"
)

var (
	lastEventCounter uint64 = 0
)

// Serializable is implemented by pointers to everything the storage layer
// persists.
type Serializable[T any] interface {
	*T
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}

type Timestamp uint64

func (t Timestamp) Time() time.Time {
	return time.Unix(0, int64(t))
}

type Call struct {
	Name    string
	Message string `json:",omitempty"`
}

type Event struct {
	Key    string
	At     uint64
	Object string
	Call   Call
}

type Eventer interface {
	Event() (*Event, error)
}

func (e *Event) Event() (*Event, error) {
	return e, nil
}

// CreateKey sets a key ordering events by time, then creation.
func (e *Event) CreateKey() {
	eventCounter := mudkit.Increment(&lastEventCounter)
	atSize := binary.Size(e.At)
	k := make([]byte, atSize+binary.Size(eventCounter))
	binary.BigEndian.PutUint64(k, e.At)
	binary.BigEndian.PutUint64(k[atSize:], eventCounter)
	e.Key = string(k)
}

func (e *Event) Marshal() ([]byte, error) {
	return goccy.Marshal(e)
}

func (e *Event) Unmarshal(b []byte) error {
	return goccy.Unmarshal(b, e)
}

type Kind string

const (
	KindThing     Kind = "thing"
	KindCharacter Kind = "character"
	KindRoom      Kind = "room"
	KindContainer Kind = "container"
	KindClothing  Kind = "clothing"
	KindDecor     Kind = "decor"
)

var (
	Kinds = []Kind{KindThing, KindCharacter, KindRoom, KindContainer, KindClothing, KindDecor}
)

type Object struct {
	Id         string
	Kind       Kind
	Name       string
	Aliases    []string          `json:",omitempty"`
	Desc       string            `json:",omitempty"`
	Owner      string            `json:",omitempty"`
	Location   string            `json:",omitempty"`
	Content    map[string]bool   `json:",omitempty"`
	Tags       map[string]string `json:",omitempty"`
	Attributes map[string]string `json:",omitempty"`
	Fixed      bool              `json:",omitempty"`

	// Worn items, in the order they were put on. Only for characters.
	Worn []string `json:",omitempty"`
	// WornStyle and CoveredBy are only set while worn.
	WornStyle string `json:",omitempty"`
	CoveredBy string `json:",omitempty"`

	// Placed is the position of placed decor, empty when not placed.
	Placed string `json:",omitempty"`
	// DecorDesc and Decorators are only used by rooms.
	DecorDesc  string          `json:",omitempty"`
	Decorators map[string]bool `json:",omitempty"`

	Growth   *growth.State `json:",omitempty"`
	Features *features.Set `json:",omitempty"`
}

func MakeObject(kind Kind, name string) *Object {
	return &Object{
		Id:      mudkit.NextUniqueID(),
		Kind:    kind,
		Name:    name,
		Content: map[string]bool{},
	}
}

func (o *Object) Marshal() ([]byte, error) {
	return goccy.Marshal(o)
}

func (o *Object) Unmarshal(b []byte) error {
	return goccy.Unmarshal(b, o)
}

func (o *Object) GetId() string {
	return o.Id
}

func (o *Object) GetName() string {
	return o.Name
}

func (o *Object) GetLocation() string {
	return o.Location
}

func (o *Object) Indef() string {
	return lang.Indef(o.Name)
}

// CanHold reports whether other objects can be put inside o.
func (o *Object) CanHold() bool {
	switch o.Kind {
	case KindRoom, KindCharacter, KindContainer:
		return true
	}
	return false
}

// Matches reports whether pattern names o, by alias or by prefixes of the
// words in its name.
func (o *Object) Matches(pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return false
	}
	if strings.ToLower(o.Name) == pattern || slices.ContainsFunc(o.Aliases, func(alias string) bool {
		return strings.ToLower(alias) == pattern
	}) {
		return true
	}
	nameWords := strings.Fields(strings.ToLower(o.Name))
	for _, word := range strings.Fields(pattern) {
		if !slices.ContainsFunc(nameWords, func(nameWord string) bool {
			return strings.HasPrefix(nameWord, word)
		}) {
			return false
		}
	}
	return true
}

func (o *Object) Tag(category string) string {
	return o.Tags[category]
}

func (o *Object) SetTag(category string, value string) {
	if value == "" {
		delete(o.Tags, category)
		return
	}
	if o.Tags == nil {
		o.Tags = map[string]string{}
	}
	o.Tags[category] = value
}

func (o *Object) GetWornStyle() string {
	return o.WornStyle
}

func (o *Object) SetWornStyle(s string) {
	o.WornStyle = s
}

func (o *Object) GetCoveredBy() string {
	return o.CoveredBy
}

func (o *Object) SetCoveredBy(id string) {
	o.CoveredBy = id
}

func (o *Object) SetName(s string) {
	o.Name = s
}

func (o *Object) SetDesc(s string) {
	o.Desc = s
}

func (o *Object) SetAttribute(key string, value string) {
	if o.Attributes == nil {
		o.Attributes = map[string]string{}
	}
	o.Attributes[key] = value
}

func (o *Object) GetPlaced() string {
	return o.Placed
}

func (o *Object) SetPlaced(position string) {
	o.Placed = position
}

// AsGarment returns o as worn. Clothing describes itself by its description
// and style, anything else by its name.
func (o *Object) AsGarment() clothing.Garment {
	if o.Kind == KindClothing {
		return describedGarment{o}
	}
	return o
}

type describedGarment struct {
	*Object
}

func (d describedGarment) WornDesc() string {
	desc := strings.TrimRight(strings.TrimSpace(d.Desc), ".!?")
	if desc == "" {
		desc = lang.Indef(d.Name)
	} else {
		desc = lang.Decapitalize(desc)
	}
	if d.WornStyle != "" {
		return desc + " " + d.WornStyle
	}
	return desc
}

type Objects []*Object

func (o Objects) Names() []string {
	result := make([]string, len(o))
	for i, obj := range o {
		result[i] = obj.Name
	}
	return result
}

// Identify returns the objects matched by pattern.
func (o Objects) Identify(pattern string) Objects {
	result := Objects{}
	for _, obj := range o {
		if obj.Matches(pattern) {
			result = append(result, obj)
		}
	}
	return result
}

type User struct {
	Name         string
	PasswordHash string
	Object       string
	Owner        bool `json:",omitempty"`
	Wizard       bool `json:",omitempty"`
	LastLogin    time.Time
}

func (u *User) Marshal() ([]byte, error) {
	return goccy.Marshal(u)
}

func (u *User) Unmarshal(b []byte) error {
	return goccy.Unmarshal(b, u)
}

// RelayBot links a game channel with a Discord channel.
type RelayBot struct {
	Name           string
	Channel        string
	DiscordChannel string
}

func (r *RelayBot) Marshal() ([]byte, error) {
	return goccy.Marshal(r)
}

func (r *RelayBot) Unmarshal(b []byte) error {
	return goccy.Unmarshal(b, r)
}
