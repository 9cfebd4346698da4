// Package growth moves objects through age based stages, renaming and
// redescribing them as they grow.
package growth

import (
	"slices"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"
)

const (
	DefaultInterval = 10 * time.Hour
)

var (
	ErrUnknownHook = errors.New("unknown growth hook")
)

// Stage is a step in the life of a growing object. Empty NewName and Desc
// leave the name and description alone.
type Stage struct {
	Name       string
	Age        time.Duration
	NewName    string              `json:",omitempty"`
	Desc       string              `json:",omitempty"`
	Attributes map[string]string   `json:",omitempty"`
	Hooks      map[string][]string `json:",omitempty"`
}

type Status struct {
	LastUpdate time.Time
	Stage      string
	Age        time.Duration
	NextAge    time.Duration
	// NextCheck is when the pending scheduled grow fires, if any.
	NextCheck time.Time
}

// State is the persisted growth of one object.
type State struct {
	Stages []Stage
	Status Status
}

// NewState returns a state starting its life at now.
func NewState(now time.Time) *State {
	return &State{
		Status: Status{LastUpdate: now},
	}
}

func (s *State) find(name string) int {
	return slices.IndexFunc(s.Stages, func(stage Stage) bool {
		return stage.Name == name
	})
}

// Grower is the object that grows.
type Grower interface {
	SetName(string)
	SetDesc(string)
	SetAttribute(key string, value string)
}

// PreGrower is implemented by growers that sometimes refuse to grow.
type PreGrower interface {
	PreGrow() bool
}

// Hook is called when a stage naming it is applied.
type Hook func(g Grower, args ...string) error

// Scheduler schedules a future Grow of the object.
type Scheduler interface {
	ScheduleGrow(after time.Duration) error
}

type Options struct {
	Interval  time.Duration
	Now       func() time.Time
	Scheduler Scheduler
	Hooks     map[string]Hook
}

type Handler struct {
	state   *State
	grower  Grower
	options Options
}

// New returns a handler growing grower according to state. A zero interval
// means DefaultInterval, a nil Now means time.Now.
func New(state *State, grower Grower, options Options) *Handler {
	if options.Interval == 0 {
		options.Interval = DefaultInterval
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Handler{
		state:   state,
		grower:  grower,
		options: options,
	}
}

func (h *Handler) Current() string {
	return h.state.Status.Stage
}

func (h *Handler) Status() Status {
	return h.state.Status
}

// All returns the stages in age order.
func (h *Handler) All() []Stage {
	return slices.Clone(h.state.Stages)
}

func (h *Handler) schedule() error {
	if h.options.Scheduler == nil {
		return nil
	}
	now := h.options.Now()
	if h.state.Status.NextCheck.After(now) {
		return nil
	}
	h.state.Status.NextCheck = now.Add(h.options.Interval)
	return mudkit.WithStack(h.options.Scheduler.ScheduleGrow(h.options.Interval))
}

// Grow brings the object up to the stage matching its age. Unless forced it
// does nothing when the last update is younger than the interval, and it
// stops at the last stage.
func (h *Handler) Grow(force bool) error {
	status := &h.state.Status
	now := h.options.Now()
	if !force && now.Sub(status.LastUpdate) < h.options.Interval {
		// A forced grow since the pending check was scheduled leaves nothing
		// else to keep the chain going.
		if h.atLastStage() {
			return nil
		}
		return h.schedule()
	}
	if len(h.state.Stages) == 0 {
		return h.schedule()
	}
	if pre, ok := h.grower.(PreGrower); ok && !pre.PreGrow() {
		return h.schedule()
	}

	age := status.Age + now.Sub(status.LastUpdate)
	last := h.state.Stages[len(h.state.Stages)-1].Name
	if status.Stage == last && !force {
		return nil
	}
	if age < status.NextAge && !force {
		status.Age = age
		status.LastUpdate = now
		return h.schedule()
	}

	nextAge := status.NextAge
	var stage *Stage
	for i := range h.state.Stages {
		if age < h.state.Stages[i].Age {
			nextAge = h.state.Stages[i].Age
			break
		}
		stage = &h.state.Stages[i]
	}
	if stage == nil {
		status.Age = age
		status.LastUpdate = now
		return h.schedule()
	}

	if err := h.apply(stage); err != nil {
		return mudkit.WithStack(err)
	}
	status.LastUpdate = now
	status.Age = age
	status.NextAge = nextAge
	status.Stage = stage.Name
	if stage.Name == last {
		return nil
	}
	return h.schedule()
}

func (h *Handler) atLastStage() bool {
	stages := h.state.Stages
	return len(stages) > 0 && h.state.Status.Stage == stages[len(stages)-1].Name
}

func (h *Handler) apply(stage *Stage) error {
	if stage.NewName != "" {
		h.grower.SetName(stage.NewName)
	}
	if stage.Desc != "" {
		h.grower.SetDesc(stage.Desc)
	}
	for key, value := range stage.Attributes {
		h.grower.SetAttribute(key, value)
	}
	names := make([]string, 0, len(stage.Hooks))
	for name := range stage.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hook, found := h.options.Hooks[name]
		if !found {
			return errors.Wrapf(ErrUnknownHook, "stage %q: %q", stage.Name, name)
		}
		if err := hook(h.grower, stage.Hooks[name]...); err != nil {
			return errors.Wrapf(err, "stage %q hook %q", stage.Name, name)
		}
	}
	return nil
}

// Add adds stage, replacing one with the same name only when force is set,
// and regrows. Reports whether the stage was added.
func (h *Handler) Add(stage Stage, force bool) (bool, error) {
	if idx := h.state.find(stage.Name); idx != -1 {
		if !force {
			return false, nil
		}
		h.state.Stages = slices.Delete(h.state.Stages, idx, idx+1)
	}
	h.state.Stages = append(h.state.Stages, stage)
	sort.SliceStable(h.state.Stages, func(i, j int) bool {
		return h.state.Stages[i].Age < h.state.Stages[j].Age
	})
	return true, h.Grow(true)
}

// Remove removes the named stage and regrows. Reports whether it existed.
func (h *Handler) Remove(name string) (bool, error) {
	idx := h.state.find(name)
	if idx == -1 {
		return false, nil
	}
	h.state.Stages = slices.Delete(h.state.Stages, idx, idx+1)
	return true, h.Grow(true)
}
