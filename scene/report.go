package scene

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/milk9111/simrig/entity"
)

// Entry is the outcome of one entity.
type Entry struct {
	Kind   string
	Name   string
	State  entity.State
	Reason string
}

func (e Entry) Failed() bool {
	return e.State != entity.Initialized
}

// Report summarizes a scene after Start.
type Report struct {
	Scene   string
	Ticks   uint64
	Entries []Entry
}

// Report captures per-entity state and failure reasons in declaration
// order.
func (s *Scene) Report() Report {
	r := Report{Scene: s.name, Ticks: s.world.Ticks()}
	for _, e := range s.entities {
		entry := Entry{Kind: e.Kind(), Name: e.Name(), State: e.State()}
		if entry.Failed() {
			entry.Reason = reason(e, s.notes[e])
		}
		r.Entries = append(r.Entries, entry)
	}
	return r
}

func reason(e entity.Entity, notes []string) string {
	var parts []string
	if err := e.LastError(); err != nil {
		var ie *entity.InitError
		if errors.As(err, &ie) {
			err = ie.Err
		}
		parts = append(parts, err.Error())
	} else if e.State() != entity.Destroyed {
		parts = append(parts, "not initialized")
	}
	parts = append(parts, notes...)
	return strings.Join(parts, "; ")
}

// Failed returns the entries that did not initialize.
func (r Report) Failed() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Failed() {
			out = append(out, e)
		}
	}
	return out
}

func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// WriteText renders the report as an aligned table.
func (r Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "scene: %s\nticks: %d\n", r.Scene, r.Ticks); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tSTATE\tREASON")
	for _, e := range r.Entries {
		reason := e.Reason
		if reason == "" {
			reason = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Kind, e.Name, e.State, reason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d entities failed\n", len(r.Failed()), len(r.Entries))
	return err
}
