package game

import (
	"fmt"

	"github.com/zond/mudkit"
	"golang.org/x/term"
)

type errs []error

func (e errs) Error() string {
	return fmt.Sprintf("%+v", []error(e))
}

// Fanout writes to every terminal in it, dropping terminals that fail.
type Fanout map[*term.Terminal]bool

func (f *Fanout) Push(t *term.Terminal) *Fanout {
	if f == nil {
		return &Fanout{t: true}
	}
	(*f)[t] = true
	return f
}

func (f *Fanout) Drop(t *term.Terminal) *Fanout {
	if f == nil {
		return nil
	}
	delete(*f, t)
	return f
}

func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(*f)
}

func (f *Fanout) Write(b []byte) (int, error) {
	if f == nil {
		return len(b), nil
	}
	errs := errs{}
	max := 0
	for t := range *f {
		if written, err := t.Write(b); err != nil {
			delete(*f, t)
			errs = append(errs, err)
		} else {
			if written > max {
				max = written
			}
		}
	}
	if len(errs) > 0 {
		return max, mudkit.WithStack(errs)
	}
	return max, nil
}
