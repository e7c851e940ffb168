package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorDefaults(t *testing.T) {
	ev := NewEvent()
	assert.Equal(t, StatusTentative, ev.Status)
	assert.Equal(t, TranspOpaque, ev.Transp)

	assert.Equal(t, ActionAudio, NewAlarm().Action)

	r := NewRule()
	assert.Equal(t, -1, r.Count)
	assert.Equal(t, 1, r.Interval)
	assert.True(t, r.Until.IsZero())
}

func TestCalendarOwnership(t *testing.T) {
	cal := NewCalendar()
	ev := NewEvent()
	cal.AddEvent(ev)
	cal.AddTimeZone(&TimeZone{TzID: "Europe/Prague"})

	rule := NewRule()
	rule.Event = ev
	ev.Rule = rule
	cal.AddRule(rule)

	assert.Len(t, cal.Events, 1)
	assert.Len(t, cal.TimeZones, 1)
	assert.Len(t, cal.Rules, 1)
	assert.Same(t, ev, cal.Rules[0].Event)
	assert.Same(t, rule, ev.Rule)
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "CONFIRMED", StatusConfirmed.String())
	assert.Equal(t, "TENTATIVE", StatusTentative.String())
	assert.Equal(t, "TRANSPARENT", TranspTransparent.String())
	assert.Equal(t, "DISPLAY", ActionDisplay.String())
	assert.Equal(t, "DAILY", FreqDaily.String())
	assert.Equal(t, "YEARLY", FreqYearly.String())
}

func TestAlarmAppendOrder(t *testing.T) {
	ev := NewEvent()
	first := &Alarm{Description: "first"}
	second := &Alarm{Description: "second"}
	ev.AddAlarm(first)
	ev.AddAlarm(second)
	assert.Equal(t, []*Alarm{first, second}, ev.Alarms)
}
