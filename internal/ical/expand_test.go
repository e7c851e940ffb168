package ical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qical/internal/model"
)

func calWithRule(t *testing.T, dtstart, dtend, rrule string) *model.Calendar {
	t.Helper()
	src := "BEGIN:VCALENDAR\n" +
		"BEGIN:VEVENT\n" +
		"UID:recurring@test\n" +
		"SUMMARY:Recurring\n" +
		"LOCATION:HQ\n" +
		"DTSTART:" + dtstart + "\n"
	if dtend != "" {
		src += "DTEND:" + dtend + "\n"
	}
	src += "RRULE:" + rrule + "\n" +
		"END:VEVENT\n" +
		"END:VCALENDAR\n"
	return parseString(t, src)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func starts(events []*model.Event) []time.Time {
	out := make([]time.Time, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.DtStart)
	}
	return out
}

func TestExpandDailyIntervalCount(t *testing.T) {
	cal := calWithRule(t, "20240101T100000", "20240101T103000",
		"FREQ=DAILY;INTERVAL=2;COUNT=3")

	got := EventsRange(cal, day(2024, 1, 1), day(2024, 1, 10))
	require.Equal(t, []time.Time{
		at(2024, 1, 1, 10, 0),
		at(2024, 1, 3, 10, 0),
		at(2024, 1, 5, 10, 0),
	}, starts(got))

	// Synthetic instances copy the descriptive fields and keep the
	// original duration.
	inst := got[1]
	assert.Equal(t, "recurring@test", inst.UID)
	assert.Equal(t, "Recurring", inst.Summary)
	assert.Equal(t, "HQ", inst.Location)
	assert.Equal(t, at(2024, 1, 3, 10, 30), inst.DtEnd)
}

func TestExpandWeeklyByDay(t *testing.T) {
	// Monday 2024-01-01 start, MO/WE/FR over two weeks.
	cal := calWithRule(t, "20240101T090000", "",
		"FREQ=WEEKLY;BYDAY=MO,WE,FR")

	got := EventsRange(cal, day(2024, 1, 1), day(2024, 1, 14))
	assert.Equal(t, []time.Time{
		at(2024, 1, 1, 9, 0),
		at(2024, 1, 3, 9, 0),
		at(2024, 1, 5, 9, 0),
		at(2024, 1, 8, 9, 0),
		at(2024, 1, 10, 9, 0),
		at(2024, 1, 12, 9, 0),
	}, starts(got))
}

func TestExpandWeeklyDefaultsToStartWeekday(t *testing.T) {
	// No BYDAY: the start's own weekday (Monday) recurs.
	cal := calWithRule(t, "20240101T090000", "", "FREQ=WEEKLY")

	got := Expand(cal, day(2024, 1, 1), day(2024, 1, 21))
	assert.Equal(t, []time.Time{
		at(2024, 1, 8, 9, 0),
		at(2024, 1, 15, 9, 0),
	}, starts(got))
}

func TestExpandWeeklyWeekStart(t *testing.T) {
	// Saturday 2024-01-06 start, every second week on SA and SU. Where the
	// week boundary falls decides which weekend days share a week with the
	// start, so WKST changes the emitted set.
	const rrule = "FREQ=WEEKLY;INTERVAL=2;BYDAY=SU,SA;WKST="
	from, to := day(2024, 1, 6), day(2024, 1, 29)

	mo := calWithRule(t, "20240106T090000", "", rrule+"MO")
	assert.Equal(t, []time.Time{
		at(2024, 1, 7, 9, 0),
		at(2024, 1, 20, 9, 0),
		at(2024, 1, 21, 9, 0),
	}, starts(Expand(mo, from, to)))

	su := calWithRule(t, "20240106T090000", "", rrule+"SU")
	assert.Equal(t, []time.Time{
		at(2024, 1, 14, 9, 0),
		at(2024, 1, 20, 9, 0),
		at(2024, 1, 28, 9, 0),
	}, starts(Expand(su, from, to)))
}

func TestExpandMonthlyByMonthDay(t *testing.T) {
	cal := calWithRule(t, "20240115T080000", "", "FREQ=MONTHLY;BYMONTHDAY=15")

	got := EventsRange(cal, day(2024, 1, 1), day(2024, 4, 1))
	assert.Equal(t, []time.Time{
		at(2024, 1, 15, 8, 0),
		at(2024, 2, 15, 8, 0),
		at(2024, 3, 15, 8, 0),
	}, starts(got))
}

func TestExpandMonthlyOrdinalByDay(t *testing.T) {
	// Second Tuesday of every month; 2024-01-09 is the second Tuesday of
	// January.
	cal := calWithRule(t, "20240109T120000", "", "FREQ=MONTHLY;BYDAY=2TU")

	got := Expand(cal, day(2024, 1, 1), day(2024, 3, 31))
	assert.Equal(t, []time.Time{
		at(2024, 2, 13, 12, 0),
		at(2024, 3, 12, 12, 0),
	}, starts(got))
}

func TestExpandMonthlyLastWeekday(t *testing.T) {
	// Last Friday of the month.
	cal := calWithRule(t, "20240126T170000", "", "FREQ=MONTHLY;BYDAY=-1FR")

	got := Expand(cal, day(2024, 1, 1), day(2024, 3, 31))
	assert.Equal(t, []time.Time{
		at(2024, 2, 23, 17, 0),
		at(2024, 3, 29, 17, 0),
	}, starts(got))
}

func TestExpandMonthlyShortMonthsSkipped(t *testing.T) {
	// Day 31 only exists in some months; the others produce nothing rather
	// than a shifted date.
	cal := calWithRule(t, "20240131T100000", "", "FREQ=MONTHLY;BYMONTHDAY=31")

	got := Expand(cal, day(2024, 1, 1), day(2024, 5, 1))
	assert.Equal(t, []time.Time{
		at(2024, 3, 31, 10, 0),
	}, starts(got))
}

func TestExpandMonthlyFallsBackToStartDay(t *testing.T) {
	// Neither BYDAY nor BYMONTHDAY: the event's own day of month recurs.
	cal := calWithRule(t, "20240110T070000", "", "FREQ=MONTHLY;INTERVAL=2")

	got := Expand(cal, day(2024, 1, 1), day(2024, 6, 1))
	assert.Equal(t, []time.Time{
		at(2024, 3, 10, 7, 0),
		at(2024, 5, 10, 7, 0),
	}, starts(got))
}

func TestExpandYearlyAnniversary(t *testing.T) {
	cal := calWithRule(t, "20200310T090000", "", "FREQ=YEARLY;INTERVAL=2")

	got := Expand(cal, day(2024, 1, 1), day(2027, 1, 1))
	assert.Equal(t, []time.Time{
		at(2024, 3, 10, 9, 0),
		at(2026, 3, 10, 9, 0),
	}, starts(got))
}

func TestExpandYearlyByMonth(t *testing.T) {
	cal := calWithRule(t, "20240105T100000", "",
		"FREQ=YEARLY;BYMONTH=1,7;BYMONTHDAY=5")

	got := Expand(cal, day(2024, 1, 1), day(2024, 12, 31))
	assert.Equal(t, []time.Time{
		at(2024, 7, 5, 10, 0),
	}, starts(got))
}

func TestExpandYearlyByWeekNo(t *testing.T) {
	// ISO week 2 of 2024 runs Jan 8-14; its Wednesday is Jan 10.
	cal := calWithRule(t, "20240101T080000", "",
		"FREQ=YEARLY;BYWEEKNO=2;BYDAY=WE")

	got := Expand(cal, day(2024, 1, 1), day(2024, 3, 1))
	assert.Equal(t, []time.Time{
		at(2024, 1, 10, 8, 0),
	}, starts(got))
}

func TestExpandUntilBound(t *testing.T) {
	cal := calWithRule(t, "20240101T100000", "",
		"FREQ=DAILY;UNTIL=20240104T000000")

	got := Expand(cal, day(2024, 1, 1), day(2024, 1, 10))
	assert.Equal(t, []time.Time{
		at(2024, 1, 2, 10, 0),
		at(2024, 1, 3, 10, 0),
		at(2024, 1, 4, 10, 0),
	}, starts(got))
}

func TestExpandEarliestBoundWins(t *testing.T) {
	// UNTIL is earlier than the COUNT-implied end and takes precedence.
	cal := calWithRule(t, "20240101T100000", "",
		"FREQ=DAILY;COUNT=10;UNTIL=20240103T000000")

	got := Expand(cal, day(2024, 1, 1), day(2024, 1, 31))
	assert.Equal(t, []time.Time{
		at(2024, 1, 2, 10, 0),
		at(2024, 1, 3, 10, 0),
	}, starts(got))
}

func TestExpandWindowAfterStart(t *testing.T) {
	// The window opens after the defining start; interval spacing is still
	// measured from the start.
	cal := calWithRule(t, "20240101T100000", "", "FREQ=DAILY;INTERVAL=2")

	got := Expand(cal, day(2024, 1, 4), day(2024, 1, 8))
	assert.Equal(t, []time.Time{
		at(2024, 1, 5, 10, 0),
		at(2024, 1, 7, 10, 0),
	}, starts(got))
}

func TestExpandWindowBeforeStart(t *testing.T) {
	cal := calWithRule(t, "20240601T100000", "", "FREQ=DAILY")

	got := Expand(cal, day(2024, 1, 1), day(2024, 1, 31))
	assert.Empty(t, got)
}

func TestExpandMonthRollover(t *testing.T) {
	cal := calWithRule(t, "20240130T080000", "", "FREQ=DAILY")

	got := Expand(cal, day(2024, 1, 30), day(2024, 2, 3))
	assert.Equal(t, []time.Time{
		at(2024, 1, 31, 8, 0),
		at(2024, 2, 1, 8, 0),
		at(2024, 2, 2, 8, 0),
	}, starts(got))
}

func TestExpandPreservesOvernightSpan(t *testing.T) {
	// A 22:00-02:00 event keeps its one-day end offset on every instance.
	cal := calWithRule(t, "20240101T220000", "20240102T020000", "FREQ=DAILY;COUNT=3")

	got := Expand(cal, day(2024, 1, 1), day(2024, 1, 10))
	require.Len(t, got, 2)
	assert.Equal(t, at(2024, 1, 2, 22, 0), got[0].DtStart)
	assert.Equal(t, at(2024, 1, 3, 2, 0), got[0].DtEnd)
	assert.Equal(t, at(2024, 1, 3, 22, 0), got[1].DtStart)
	assert.Equal(t, at(2024, 1, 4, 2, 0), got[1].DtEnd)
}

func TestExpandSubDailyFrequenciesProduceNothing(t *testing.T) {
	for _, freq := range []string{"SECONDLY", "MINUTELY", "HOURLY"} {
		cal := calWithRule(t, "20240101T100000", "", "FREQ="+freq)
		assert.Empty(t, Expand(cal, day(2024, 1, 1), day(2024, 1, 31)), "freq %s", freq)
	}
}

func TestMonthDays(t *testing.T) {
	ev := &model.Event{DtStart: at(2024, 1, 9, 12, 0)}

	tests := []struct {
		name string
		rule *model.Rule
		year int
		mon  time.Month
		want []int
	}{
		{
			name: "every tuesday",
			rule: &model.Rule{ByDay: []string{"TU"}},
			year: 2024, mon: time.January,
			want: []int{2, 9, 16, 23, 30},
		},
		{
			name: "second tuesday",
			rule: &model.Rule{ByDay: []string{"2TU"}},
			year: 2024, mon: time.February,
			want: []int{13},
		},
		{
			name: "last friday",
			rule: &model.Rule{ByDay: []string{"-1FR"}},
			year: 2024, mon: time.January,
			want: []int{26},
		},
		{
			name: "byday and bymonthday merge sorted",
			rule: &model.Rule{ByDay: []string{"1MO"}, ByMonthDay: []int{20, 1}},
			year: 2024, mon: time.January,
			want: []int{1, 20}, // 1MO is Jan 1; duplicates collapse
		},
		{
			name: "out of range monthday dropped",
			rule: &model.Rule{ByMonthDay: []int{30, 31}},
			year: 2024, mon: time.February,
			want: []int{},
		},
		{
			name: "fallback to event day",
			rule: &model.Rule{Event: ev},
			year: 2024, mon: time.March,
			want: []int{9},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, monthDays(tc.rule, tc.year, tc.mon))
		})
	}
}
