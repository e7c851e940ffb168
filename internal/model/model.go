// Package model holds the calendar object tree produced by the ical parser:
// a Calendar owning time zones and events, events owning alarms and an
// optional recurrence rule. The parser is the only writer; everything after
// parsing treats the tree as read-only.
package model

import "time"

// Status is the confirmation state of an event (STATUS property).
type Status int

const (
	StatusTentative Status = iota
	StatusConfirmed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "TENTATIVE"
	}
}

// Transp is the time-transparency of an event (TRANSP property).
type Transp int

const (
	TranspOpaque Transp = iota
	TranspTransparent
)

func (t Transp) String() string {
	if t == TranspTransparent {
		return "TRANSPARENT"
	}
	return "OPAQUE"
}

// AlarmAction is the kind of a VALARM (ACTION property).
type AlarmAction int

const (
	ActionAudio AlarmAction = iota
	ActionDisplay
	ActionEmail
)

func (a AlarmAction) String() string {
	switch a {
	case ActionDisplay:
		return "DISPLAY"
	case ActionEmail:
		return "EMAIL"
	default:
		return "AUDIO"
	}
}

// Freq is the base frequency of a recurrence rule.
type Freq int

const (
	FreqSecondly Freq = iota
	FreqMinutely
	FreqHourly
	FreqDaily
	FreqWeekly
	FreqMonthly
	FreqYearly
)

func (f Freq) String() string {
	switch f {
	case FreqMinutely:
		return "MINUTELY"
	case FreqHourly:
		return "HOURLY"
	case FreqDaily:
		return "DAILY"
	case FreqWeekly:
		return "WEEKLY"
	case FreqMonthly:
		return "MONTHLY"
	case FreqYearly:
		return "YEARLY"
	default:
		return "SECONDLY"
	}
}

// Calendar is the root of one parsed VCALENDAR. It owns its time zones and
// events; Rules is a flat view over every event-owned rule in the calendar.
type Calendar struct {
	ProdID  string
	Version string
	Method  string

	TimeZones []*TimeZone
	Events    []*Event
	Rules     []*Rule
}

func NewCalendar() *Calendar {
	return &Calendar{}
}

func (c *Calendar) AddTimeZone(tz *TimeZone) {
	c.TimeZones = append(c.TimeZones, tz)
}

func (c *Calendar) AddEvent(ev *Event) {
	c.Events = append(c.Events, ev)
}

func (c *Calendar) AddRule(r *Rule) {
	c.Rules = append(c.Rules, r)
}

// TimeZone is one VTIMEZONE block with its optional STANDARD and DAYLIGHT
// transition records.
type TimeZone struct {
	TzID     string
	Standard *TzInfo
	Daylight *TzInfo
}

// TzInfo describes one time-zone transition record. Offsets are kept as the
// raw integers from the source text (+0100 parses as 100); no UTC conversion
// is derived from them.
type TzInfo struct {
	OffsetFrom int
	OffsetTo   int
	TzName     string
	DtStart    time.Time
	Rule       *Rule
}

// Event is one VEVENT. A synthetic occurrence produced by recurrence
// expansion is also an Event; it copies the descriptive fields of its
// defining event but is never appended to Calendar.Events.
type Event struct {
	DtStart time.Time
	DtEnd   time.Time
	DtStamp time.Time

	UID          string
	Created      time.Time
	LastModified time.Time

	Description string
	Summary     string
	Location    string

	Status Status
	Transp Transp

	Alarms []*Alarm
	Rule   *Rule
}

// NewEvent returns an Event with the source-format defaults: tentative
// status and opaque transparency.
func NewEvent() *Event {
	return &Event{
		Status: StatusTentative,
		Transp: TranspOpaque,
	}
}

func (e *Event) AddAlarm(a *Alarm) {
	e.Alarms = append(e.Alarms, a)
}

// Alarm is one VALARM. The trigger expression is stored verbatim and never
// interpreted.
type Alarm struct {
	Action      AlarmAction
	Description string
	Trigger     string
}

func NewAlarm() *Alarm {
	return &Alarm{Action: ActionAudio}
}

// Rule is one RRULE. Count -1 means unbounded; a zero Until means no
// explicit bound. ByDay keeps the raw [±N]DD tokens; the integer by-clauses
// are the comma lists as written, unvalidated. Event is a non-owning
// back-reference set only for rules attached to a VEVENT, and only those
// rules participate in occurrence expansion.
type Rule struct {
	Freq     Freq
	Until    time.Time
	Count    int
	Interval int

	BySecond   []int
	ByMinute   []int
	ByHour     []int
	ByDay      []string
	ByMonthDay []int
	ByYearDay  []int
	ByWeekNo   []int
	ByMonth    []int
	BySetPos   []int

	Wkst string

	Event *Event
}

// NewRule returns a Rule with the documented defaults: unbounded count and
// an interval of one period.
func NewRule() *Rule {
	return &Rule{
		Count:    -1,
		Interval: 1,
	}
}
