package ical

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"qical/internal/model"
)

// Expand synthesizes occurrence instances for every event-owned rule in the
// calendar that fall inside [from, to]. Each instance copies the defining
// event's descriptive fields and recombines its time-of-day with a computed
// date. The occurrence coinciding with the defining event's own start is not
// synthesized; the stored event already represents it. Instances are owned
// by the returned slice only and never inserted into the calendar.
func Expand(cal *model.Calendar, from, to time.Time) []*model.Event {
	var out []*model.Event
	for _, rule := range cal.Rules {
		if rule.Event == nil {
			continue
		}
		out = append(out, expandRule(rule, from, to)...)
	}
	return out
}

func expandRule(r *model.Rule, from, to time.Time) []*model.Event {
	switch r.Freq {
	case model.FreqDaily:
		return expandDaily(r, from, to)
	case model.FreqWeekly:
		return expandWeekly(r, from, to)
	case model.FreqMonthly:
		return expandMonthly(r, from, to)
	case model.FreqYearly:
		return expandYearly(r, from, to)
	default:
		// Sub-daily frequencies are stored but not expanded.
		return nil
	}
}

// expandDaily emits an instance on every day whose whole-day distance from
// the rule's defining start is an exact multiple of the interval.
func expandDaily(r *model.Rule, from, to time.Time) []*model.Event {
	ev := r.Event
	start := dateOf(ev.DtStart)
	end := dateOf(effectiveEnd(r, to))
	iv := intervalOf(r)

	cur := dateOf(from)
	if cur.Before(start) {
		cur = start
	}

	var out []*model.Event
	for !cur.After(end) {
		if daysBetween(start, cur)%iv == 0 {
			out = appendInstance(out, ev, cur, from, to)
			cur = cur.AddDate(0, 0, iv)
		} else {
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return out
}

// expandWeekly emits on every day whose weekday is in the by-day set (the
// start's own weekday when BYDAY is absent) and whose week, aligned to the
// rule's week start, is an interval multiple of the start's week.
func expandWeekly(r *model.Rule, from, to time.Time) []*model.Event {
	ev := r.Event
	start := dateOf(ev.DtStart)
	end := dateOf(effectiveEnd(r, to))
	iv := intervalOf(r)
	days := weekdaySet(r, ev)
	wkst := weekStartOf(r)
	baseWeek := weekOf(start, wkst)

	cur := dateOf(from)
	if cur.Before(start) {
		cur = start
	}

	var out []*model.Event
	for !cur.After(end) {
		if days[cur.Weekday()] && (daysBetween(baseWeek, weekOf(cur, wkst))/7)%iv == 0 {
			out = appendInstance(out, ev, cur, from, to)
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

// expandMonthly skips whole months that miss the interval spacing or an
// explicit BYMONTH filter, and inside a qualifying month emits on each day
// the month's resolved day list contains. The day list is recomputed once
// per distinct month.
func expandMonthly(r *model.Rule, from, to time.Time) []*model.Event {
	ev := r.Event
	start := dateOf(ev.DtStart)
	end := dateOf(effectiveEnd(r, to))
	iv := intervalOf(r)

	cur := dateOf(from)
	if cur.Before(start) {
		cur = start
	}

	var out []*model.Event
	listYear, listMonth := 0, time.Month(0)
	var days map[int]bool
	for !cur.After(end) {
		if monthsBetween(start, cur)%iv != 0 || !monthAllowed(r, cur.Month()) {
			cur = firstOfNextMonth(cur)
			continue
		}
		if cur.Year() != listYear || cur.Month() != listMonth {
			days = daySet(monthDays(r, cur.Year(), cur.Month()))
			listYear, listMonth = cur.Year(), cur.Month()
		}
		if days[cur.Day()] {
			out = appendInstance(out, ev, cur, from, to)
			delete(days, cur.Day())
		}
		cur = cur.AddDate(0, 0, 1)
	}
	return out
}

// expandYearly branches on which by-clauses are populated: ISO week numbers,
// months, or the plain anniversary of the defining start.
func expandYearly(r *model.Rule, from, to time.Time) []*model.Event {
	ev := r.Event
	start := dateOf(ev.DtStart)
	end := dateOf(effectiveEnd(r, to))
	iv := intervalOf(r)

	cur := dateOf(from)
	if cur.Before(start) {
		cur = start
	}

	var out []*model.Event
	switch {
	case len(r.ByWeekNo) > 0:
		days := weekdaySet(r, ev)
		for !cur.After(end) {
			if (cur.Year()-start.Year())%iv != 0 {
				cur = firstOfYear(cur.Year() + 1)
				continue
			}
			_, week := cur.ISOWeek()
			if containsInt(r.ByWeekNo, week) && days[cur.Weekday()] {
				out = appendInstance(out, ev, cur, from, to)
			}
			cur = cur.AddDate(0, 0, 1)
		}

	case len(r.ByMonth) > 0:
		listYear, listMonth := 0, time.Month(0)
		var days map[int]bool
		for !cur.After(end) {
			if (cur.Year()-start.Year())%iv != 0 {
				cur = firstOfYear(cur.Year() + 1)
				continue
			}
			if !containsInt(r.ByMonth, int(cur.Month())) {
				cur = firstOfNextMonth(cur)
				continue
			}
			if cur.Year() != listYear || cur.Month() != listMonth {
				days = daySet(monthDays(r, cur.Year(), cur.Month()))
				listYear, listMonth = cur.Year(), cur.Month()
			}
			if days[cur.Day()] {
				out = appendInstance(out, ev, cur, from, to)
				delete(days, cur.Day())
			}
			cur = cur.AddDate(0, 0, 1)
		}

	default:
		// Anniversary of the defining start's month and day.
		for !cur.After(end) {
			if (cur.Year()-start.Year())%iv == 0 {
				d := time.Date(cur.Year(), ev.DtStart.Month(), ev.DtStart.Day(),
					0, 0, 0, 0, time.UTC)
				if !d.Before(cur) && !d.After(end) {
					out = appendInstance(out, ev, d, from, to)
				}
			}
			cur = firstOfYear(cur.Year() + 1)
		}
	}
	return out
}

// effectiveEnd computes the generation bound: the earliest of the date
// implied by COUNT (start advanced count*interval periods, exclusive of the
// boundary), the explicit UNTIL, and the query's to.
func effectiveEnd(r *model.Rule, to time.Time) time.Time {
	end := to
	if r.Count >= 0 {
		start := r.Event.DtStart
		iv := intervalOf(r)
		var bound time.Time
		switch r.Freq {
		case model.FreqWeekly:
			bound = start.AddDate(0, 0, 7*r.Count*iv)
		case model.FreqMonthly:
			bound = start.AddDate(0, r.Count*iv, 0)
		case model.FreqYearly:
			bound = start.AddDate(r.Count*iv, 0, 0)
		default:
			bound = start.AddDate(0, 0, r.Count*iv)
		}
		// The boundary date itself is the count-th period and not emitted.
		bound = bound.AddDate(0, 0, -1)
		if bound.Before(end) {
			end = bound
		}
	}
	if !r.Until.IsZero() && r.Until.Before(end) {
		end = r.Until
	}
	return end
}

// monthDays resolves which days of the given month produce occurrences:
// ordinal BYDAY tokens (Nth weekday from the start, Nth-from-last, or every
// occurrence when unprefixed), direct BYMONTHDAY values, and, when both are
// absent, the defining event's own day of month. Days that do not exist in
// the month are dropped; the result is deduplicated and ascending.
func monthDays(r *model.Rule, year int, month time.Month) []int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	n := last.Day()

	set := make(map[int]bool)
	for _, token := range r.ByDay {
		ord, wd, ok := parseDayToken(token)
		if !ok {
			continue
		}
		firstHit := 1 + (int(wd)-int(first.Weekday())+7)%7
		switch {
		case ord > 0:
			if d := firstHit + (ord-1)*7; d <= n {
				set[d] = true
			}
		case ord < 0:
			lastHit := n - (int(last.Weekday())-int(wd)+7)%7
			if d := lastHit + (ord+1)*7; d >= 1 {
				set[d] = true
			}
		default:
			for d := firstHit; d <= n; d += 7 {
				set[d] = true
			}
		}
	}
	for _, d := range r.ByMonthDay {
		if d >= 1 && d <= n {
			set[d] = true
		}
	}
	if len(r.ByDay) == 0 && len(r.ByMonthDay) == 0 && r.Event != nil {
		if d := r.Event.DtStart.Day(); d <= n {
			set[d] = true
		}
	}

	out := make([]int, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// parseDayToken splits a [±N]DD by-day token into its signed ordinal and
// weekday. A missing ordinal is zero ("every such weekday in the period").
func parseDayToken(token string) (ord int, wd time.Weekday, ok bool) {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return 0, 0, false
	}
	wd, ok = weekdayCodes[token[len(token)-2:]]
	if !ok {
		return 0, 0, false
	}
	if len(token) > 2 {
		ord, _ = strconv.Atoi(token[:len(token)-2])
	}
	return ord, wd, true
}

// weekdaySet collects the weekdays named by BYDAY, ordinals ignored; absent
// BYDAY defaults to the defining start's own weekday.
func weekdaySet(r *model.Rule, ev *model.Event) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool)
	for _, token := range r.ByDay {
		if _, wd, ok := parseDayToken(token); ok {
			set[wd] = true
		}
	}
	if len(set) == 0 {
		set[ev.DtStart.Weekday()] = true
	}
	return set
}

// weekStartOf returns the rule's week-start weekday, Monday when WKST is
// absent or unrecognized.
func weekStartOf(r *model.Rule) time.Weekday {
	if wd, ok := weekdayCodes[r.Wkst]; ok {
		return wd
	}
	return time.Monday
}

// weekOf returns the first day of d's week under the given week start.
func weekOf(d time.Time, wkst time.Weekday) time.Time {
	return d.AddDate(0, 0, -((int(d.Weekday())-int(wkst)+7)%7))
}

func intervalOf(r *model.Rule) int {
	if r.Interval < 1 {
		return 1
	}
	return r.Interval
}

func monthAllowed(r *model.Rule, m time.Month) bool {
	return len(r.ByMonth) == 0 || containsInt(r.ByMonth, int(m))
}

func containsInt(list []int, v int) bool {
	for _, n := range list {
		if n == v {
			return true
		}
	}
	return false
}

func daySet(days []int) map[int]bool {
	set := make(map[int]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func daysBetween(a, b time.Time) int {
	return int(dateOf(b).Sub(dateOf(a)).Hours() / 24)
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

func firstOfNextMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).AddDate(0, 1, 0)
}

func firstOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// appendInstance materializes an occurrence on the given day and keeps it if
// it lies inside the query window and is not the defining event's own start.
func appendInstance(out []*model.Event, ev *model.Event, day time.Time, from, to time.Time) []*model.Event {
	inst := makeInstance(ev, day)
	if inst.DtStart.Equal(ev.DtStart) {
		return out
	}
	if inst.DtStart.Before(from) || inst.DtStart.After(to) {
		return out
	}
	return append(out, inst)
}

// makeInstance copies the defining event's descriptive fields and places its
// time-of-day on the computed date. When the event has an end, the original
// start-to-end day span and end time-of-day are preserved.
func makeInstance(ev *model.Event, day time.Time) *model.Event {
	s := ev.DtStart
	inst := &model.Event{
		DtStart: time.Date(day.Year(), day.Month(), day.Day(),
			s.Hour(), s.Minute(), s.Second(), 0, s.Location()),
		DtStamp:      ev.DtStamp,
		UID:          ev.UID,
		Created:      ev.Created,
		LastModified: ev.LastModified,
		Description:  ev.Description,
		Summary:      ev.Summary,
		Location:     ev.Location,
		Status:       ev.Status,
		Transp:       ev.Transp,
	}
	if !ev.DtEnd.IsZero() {
		endDay := day.AddDate(0, 0, daysBetween(ev.DtStart, ev.DtEnd))
		e := ev.DtEnd
		inst.DtEnd = time.Date(endDay.Year(), endDay.Month(), endDay.Day(),
			e.Hour(), e.Minute(), e.Second(), 0, e.Location())
	}
	return inst
}
