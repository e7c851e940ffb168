package ical

import (
	"sort"
	"time"

	"qical/internal/model"
)

// EventsFrom returns the stored (non-synthetic) events whose start is at or
// after from, in original storage order.
func EventsFrom(cal *model.Calendar, from time.Time) []*model.Event {
	var out []*model.Event
	for _, ev := range cal.Events {
		if !ev.DtStart.Before(from) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsRange returns the stored events starting inside [from, to] together
// with the recurrence-expansion output for the same window, sorted ascending
// by start time. The sort is stable; at equal instants stored events precede
// synthetic ones.
func EventsRange(cal *model.Calendar, from, to time.Time) []*model.Event {
	var out []*model.Event
	for _, ev := range cal.Events {
		if !ev.DtStart.Before(from) && !ev.DtStart.After(to) {
			out = append(out, ev)
		}
	}
	out = append(out, Expand(cal, from, to)...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DtStart.Before(out[j].DtStart)
	})
	return out
}

// EventsFrom delegates to the package-level query against the parser's
// current calendar; it returns nil when no parse has succeeded.
func (p *Parser) EventsFrom(from time.Time) []*model.Event {
	if p.cal == nil {
		return nil
	}
	return EventsFrom(p.cal, from)
}

// EventsRange delegates to the package-level query against the parser's
// current calendar; it returns nil when no parse has succeeded.
func (p *Parser) EventsRange(from, to time.Time) []*model.Event {
	if p.cal == nil {
		return nil
	}
	return EventsRange(p.cal, from, to)
}
