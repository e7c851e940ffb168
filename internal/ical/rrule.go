package ical

import (
	"strings"

	"qical/internal/model"
)

// parseRule decodes one RRULE value. The new Rule attaches to the rule slot
// of the current object; only a rule owned by an event is also appended to
// the calendar-wide rule list and given the event back-reference, and only
// those rules participate in occurrence expansion. The transient rule state
// is pushed for the duration of the value and popped before the next line.
func (p *Parser) parseRule(value string) {
	rule := model.NewRule()

	switch p.top() {
	case stateTzStandard:
		p.curTimeZone().Standard.Rule = rule
	case stateTzDaylight:
		p.curTimeZone().Daylight.Rule = rule
	case stateEvent:
		ev := p.curEvent()
		ev.Rule = rule
		rule.Event = ev
		p.cal.AddRule(rule)
	default:
		return
	}

	p.push(stateRule)
	for _, param := range strings.Split(value, ";") {
		kv := strings.SplitN(param, "=", 2)
		if len(kv) != 2 {
			continue
		}
		p.applyRuleParam(rule, kv[0], kv[1])
	}
	p.pop()
}

// applyRuleParam dispatches one KEY=VALUE rule parameter. Unrecognized keys
// are ignored.
func (p *Parser) applyRuleParam(r *model.Rule, key, value string) {
	switch key {
	case "FREQ":
		r.Freq = decodeEnum(p, key, value, freqTokens)
	case "INTERVAL":
		r.Interval = p.decodeInt(key, value)
	case "COUNT":
		r.Count = p.decodeInt(key, value)
	case "UNTIL":
		r.Until = p.decodeDate(key, value)
	case "WKST":
		r.Wkst = value
	case "BYDAY":
		r.ByDay = strings.Split(value, ",")
	case "BYSECOND":
		r.BySecond = p.decodeIntList(key, value)
	case "BYMINUTE":
		r.ByMinute = p.decodeIntList(key, value)
	case "BYHOUR":
		r.ByHour = p.decodeIntList(key, value)
	case "BYMONTHDAY":
		r.ByMonthDay = p.decodeIntList(key, value)
	case "BYYEARDAY":
		r.ByYearDay = p.decodeIntList(key, value)
	case "BYWEEKNO":
		r.ByWeekNo = p.decodeIntList(key, value)
	case "BYMONTH":
		r.ByMonth = p.decodeIntList(key, value)
	case "BYSETPOS":
		r.BySetPos = p.decodeIntList(key, value)
	}
}
