// Package ical parses the iCalendar text format into the model object tree
// and expands recurrence rules into concrete event occurrences.
//
// The parser is a line-driven state machine: BEGIN/END lines push and pop
// block states, every other line is a property dispatched through a static
// per-state keyword table to a typed decoder. Unknown blocks and properties
// are skipped, never fatal; the only parse failure is the complete absence
// of a VCALENDAR block.
package ical

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	appLog "qical/internal/log"
	"qical/internal/model"
)

// ErrNoCalendar is returned when the input contains no top-level
// BEGIN:VCALENDAR block.
var ErrNoCalendar = errors.New("ical: no VCALENDAR block found")

type state int

const (
	stateRoot state = iota
	stateCalendar
	stateTimeZone
	stateTzStandard
	stateTzDaylight
	stateEvent
	stateAlarm
	// stateRule is transient: pushed for the duration of one RRULE value
	// and popped before the next line, never by a BEGIN/END pair.
	stateRule
)

// field identifies one settable slot of the model tree. Tags are unique
// across object kinds so the apply switches need no state lookup.
type field int

const (
	fieldNone field = iota

	fieldProdID
	fieldVersion
	fieldMethod

	fieldTzID
	fieldTzOffsetFrom
	fieldTzOffsetTo
	fieldTzName
	fieldTzDtStart

	fieldEvtDtStart
	fieldEvtDtEnd
	fieldEvtDtStamp
	fieldEvtUID
	fieldEvtCreated
	fieldEvtLastModified
	fieldEvtDescription
	fieldEvtSummary
	fieldEvtLocation
	fieldEvtStatus
	fieldEvtTransp

	fieldAlarmAction
	fieldAlarmDescription
	fieldAlarmTrigger
)

type actionKind int

const (
	actBegin actionKind = iota
	actEnd
	actString
	actInt
	actDate
	actEnum
	actRule
)

type action struct {
	kind  actionKind
	field field
}

func str(f field) action  { return action{actString, f} }
func num(f field) action  { return action{actInt, f} }
func date(f field) action { return action{actDate, f} }
func enum(f field) action { return action{actEnum, f} }

var (
	begin = action{kind: actBegin}
	end   = action{kind: actEnd}
	rrule = action{kind: actRule}
)

// tzInfoKeywords is shared by the STANDARD and DAYLIGHT states; their
// property sets are identical.
var tzInfoKeywords = map[string]action{
	"BEGIN":        begin,
	"TZOFFSETFROM": num(fieldTzOffsetFrom),
	"TZOFFSETTO":   num(fieldTzOffsetTo),
	"TZNAME":       str(fieldTzName),
	"DTSTART":      date(fieldTzDtStart),
	"RRULE":        rrule,
	"END":          end,
}

// keywords maps state x property keyword to the decoder action that consumes
// the value. A keyword missing from the active state's table is skipped.
var keywords = map[state]map[string]action{
	stateRoot: {
		"BEGIN": begin,
		"END":   end,
	},
	stateCalendar: {
		"BEGIN":   begin,
		"PRODID":  str(fieldProdID),
		"VERSION": str(fieldVersion),
		"METHOD":  str(fieldMethod),
		"END":     end,
	},
	stateTimeZone: {
		"BEGIN": begin,
		"TZID":  str(fieldTzID),
		"END":   end,
	},
	stateTzStandard: tzInfoKeywords,
	stateTzDaylight: tzInfoKeywords,
	stateEvent: {
		"BEGIN":         begin,
		"DTSTART":       date(fieldEvtDtStart),
		"DTEND":         date(fieldEvtDtEnd),
		"DTSTAMP":       date(fieldEvtDtStamp),
		"UID":           str(fieldEvtUID),
		"CREATED":       date(fieldEvtCreated),
		"DESCRIPTION":   str(fieldEvtDescription),
		"SUMMARY":       str(fieldEvtSummary),
		"LOCATION":      str(fieldEvtLocation),
		"LAST-MODIFIED": date(fieldEvtLastModified),
		"STATUS":        enum(fieldEvtStatus),
		"TRANSP":        enum(fieldEvtTransp),
		"RRULE":         rrule,
		"END":           end,
	},
	stateAlarm: {
		"BEGIN":       begin,
		"DESCRIPTION": str(fieldAlarmDescription),
		"ACTION":      enum(fieldAlarmAction),
		"TRIGGER":     str(fieldAlarmTrigger),
		"END":         end,
	},
}

// blockStates is the BEGIN transition table: which block keywords are
// recognized in each state and the state they push.
var blockStates = map[state]map[string]state{
	stateRoot: {
		"VCALENDAR": stateCalendar,
	},
	stateCalendar: {
		"VTIMEZONE": stateTimeZone,
		"VEVENT":    stateEvent,
	},
	stateTimeZone: {
		"STANDARD": stateTzStandard,
		"DAYLIGHT": stateTzDaylight,
	},
	stateEvent: {
		"VALARM": stateAlarm,
	},
}

// blockOf maps an END keyword to the state it closes; an END whose keyword
// does not match the top of the stack is ignored.
var blockOf = map[string]state{
	"VCALENDAR": stateCalendar,
	"VTIMEZONE": stateTimeZone,
	"STANDARD":  stateTzStandard,
	"DAYLIGHT":  stateTzDaylight,
	"VEVENT":    stateEvent,
	"VALARM":    stateAlarm,
}

// Parser builds a Calendar from iCalendar text. A Parser is not safe for
// concurrent use; parsing is strictly sequential. A new parse discards any
// Calendar held from a previous one.
type Parser struct {
	cal   *model.Calendar
	stack []state
	diags []Diagnostic
	line  int
}

func NewParser() *Parser {
	return &Parser{}
}

// Calendar returns the most recently parsed calendar, or nil if no parse
// has succeeded yet.
func (p *Parser) Calendar() *model.Calendar {
	return p.cal
}

// Diagnostics returns the malformed-field diagnostics collected during the
// last parse. Malformed values never fail a parse; they decode to fallback
// values and are recorded here.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.diags
}

// ParseFile parses the iCalendar file at path. The previously held Calendar
// is discarded even when the file cannot be opened.
func (p *Parser) ParseFile(path string) (*model.Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		p.cal = nil
		return nil, err
	}
	defer f.Close()
	return p.Parse(f)
}

// Parse reads CRLF/LF-terminated lines from r and builds the Calendar.
// It returns ErrNoCalendar if the input has no top-level VCALENDAR block.
func (p *Parser) Parse(r io.Reader) (*model.Calendar, error) {
	p.cal = nil
	p.stack = p.stack[:0]
	p.push(stateRoot)
	p.diags = nil
	p.line = 0

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++
		p.handleLine(strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		p.cal = nil
		return nil, err
	}

	if p.cal == nil {
		return nil, ErrNoCalendar
	}

	appLog.Debug("ical parse completed",
		"events", len(p.cal.Events),
		"timezones", len(p.cal.TimeZones),
		"rules", len(p.cal.Rules),
		"diagnostics", len(p.diags),
	)
	return p.cal, nil
}

// handleLine dispatches one source line. Lines without a colon are ignored;
// the keyword is everything before the first colon, the value everything
// after it with surrounding whitespace trimmed.
func (p *Parser) handleLine(line string) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return
	}
	keyword := line[:idx]
	value := strings.TrimSpace(line[idx+1:])

	table := keywords[p.top()]
	act, ok := table[keyword]
	if !ok && strings.HasPrefix(keyword, "DT") {
		// Date keywords may carry a parameter suffix, e.g.
		// DTSTART;TZID=Europe/Prague:20240101T100000. Retry with the bare
		// keyword.
		if semi := strings.Index(keyword, ";"); semi > 0 {
			keyword = keyword[:semi]
			act, ok = table[keyword]
		}
	}
	if !ok {
		return
	}

	switch act.kind {
	case actBegin:
		p.switchState(value)
	case actEnd:
		p.endState(value)
	case actString:
		p.applyString(act.field, value)
	case actInt:
		p.applyInt(act.field, keyword, value)
	case actDate:
		p.applyDate(act.field, keyword, value)
	case actEnum:
		p.applyEnum(act.field, keyword, value)
	case actRule:
		p.parseRule(value)
	}
}

// switchState handles a BEGIN line: if the keyword is a recognized child
// block of the current state, instantiate the model object, attach it to its
// parent and push the new state. Unrecognized blocks are ignored.
func (p *Parser) switchState(keyword string) {
	next, ok := blockStates[p.top()][keyword]
	if !ok {
		return
	}
	switch next {
	case stateCalendar:
		p.cal = model.NewCalendar()
	case stateTimeZone:
		p.cal.AddTimeZone(&model.TimeZone{})
	case stateTzStandard:
		p.curTimeZone().Standard = &model.TzInfo{}
	case stateTzDaylight:
		p.curTimeZone().Daylight = &model.TzInfo{}
	case stateEvent:
		p.cal.AddEvent(model.NewEvent())
	case stateAlarm:
		p.curEvent().AddAlarm(model.NewAlarm())
	}
	p.push(next)
}

// endState pops the stack only when the END keyword closes the block on top.
func (p *Parser) endState(keyword string) {
	st, ok := blockOf[keyword]
	if ok && st == p.top() {
		p.pop()
	}
}

func (p *Parser) applyString(f field, v string) {
	switch f {
	case fieldProdID:
		p.cal.ProdID = v
	case fieldVersion:
		p.cal.Version = v
	case fieldMethod:
		p.cal.Method = v
	case fieldTzID:
		p.curTimeZone().TzID = v
	case fieldTzName:
		p.curTzInfo().TzName = v
	case fieldEvtUID:
		p.curEvent().UID = v
	case fieldEvtDescription:
		p.curEvent().Description = v
	case fieldEvtSummary:
		p.curEvent().Summary = v
	case fieldEvtLocation:
		p.curEvent().Location = v
	case fieldAlarmDescription:
		p.curAlarm().Description = v
	case fieldAlarmTrigger:
		p.curAlarm().Trigger = v
	}
}

func (p *Parser) applyInt(f field, keyword, v string) {
	n := p.decodeInt(keyword, v)
	switch f {
	case fieldTzOffsetFrom:
		p.curTzInfo().OffsetFrom = n
	case fieldTzOffsetTo:
		p.curTzInfo().OffsetTo = n
	}
}

func (p *Parser) applyDate(f field, keyword, v string) {
	t := p.decodeDate(keyword, v)
	switch f {
	case fieldTzDtStart:
		p.curTzInfo().DtStart = t
	case fieldEvtDtStart:
		p.curEvent().DtStart = t
	case fieldEvtDtEnd:
		p.curEvent().DtEnd = t
	case fieldEvtDtStamp:
		p.curEvent().DtStamp = t
	case fieldEvtCreated:
		p.curEvent().Created = t
	case fieldEvtLastModified:
		p.curEvent().LastModified = t
	}
}

func (p *Parser) applyEnum(f field, keyword, v string) {
	switch f {
	case fieldEvtStatus:
		p.curEvent().Status = decodeEnum(p, keyword, v, statusTokens)
	case fieldEvtTransp:
		p.curEvent().Transp = decodeEnum(p, keyword, v, transpTokens)
	case fieldAlarmAction:
		p.curAlarm().Action = decodeEnum(p, keyword, v, actionTokens)
	}
}

func (p *Parser) push(st state) {
	p.stack = append(p.stack, st)
}

func (p *Parser) pop() {
	p.stack = p.stack[:len(p.stack)-1]
}

func (p *Parser) top() state {
	return p.stack[len(p.stack)-1]
}

// Current-object accessors. The parser only dispatches a field action when
// the matching block is on top of the stack, so the newest object of each
// kind is always the one being built.

func (p *Parser) curTimeZone() *model.TimeZone {
	return p.cal.TimeZones[len(p.cal.TimeZones)-1]
}

func (p *Parser) curTzInfo() *model.TzInfo {
	tz := p.curTimeZone()
	if p.top() == stateTzDaylight {
		return tz.Daylight
	}
	return tz.Standard
}

func (p *Parser) curEvent() *model.Event {
	return p.cal.Events[len(p.cal.Events)-1]
}

func (p *Parser) curAlarm() *model.Alarm {
	ev := p.curEvent()
	return ev.Alarms[len(ev.Alarms)-1]
}
