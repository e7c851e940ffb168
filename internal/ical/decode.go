package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"qical/internal/model"
)

// Diagnostic records one malformed property value. The value still decodes
// to its documented fallback; the parse itself never fails on it.
type Diagnostic struct {
	Line    int
	Keyword string
	Value   string
	Reason  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s=%q: %s", d.Line, d.Keyword, d.Value, d.Reason)
}

func (p *Parser) diag(keyword, value, reason string) {
	p.diags = append(p.diags, Diagnostic{
		Line:    p.line,
		Keyword: keyword,
		Value:   value,
		Reason:  reason,
	})
}

// dateLayouts are tried in order: local timestamp, UTC-suffixed timestamp,
// date-only. The trailing Z is matched literally; no zone conversion is
// performed.
var dateLayouts = []string{
	"20060102T150405",
	"20060102T150405Z",
	"20060102",
}

// epochFallback is the value a date field takes when none of the supported
// layouts match.
var epochFallback = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

func (p *Parser) decodeDate(keyword, v string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	p.diag(keyword, v, "unparseable date-time")
	return epochFallback
}

func (p *Parser) decodeInt(keyword, v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		p.diag(keyword, v, "unparseable integer")
		return 0
	}
	return n
}

// decodeIntList decodes a comma-separated integer list; each malformed
// element decodes to zero.
func (p *Parser) decodeIntList(keyword, v string) []int {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		out = append(out, p.decodeInt(keyword, part))
	}
	return out
}

var statusTokens = map[string]model.Status{
	"TENTATIVE": model.StatusTentative,
	"CONFIRMED": model.StatusConfirmed,
	"CANCELLED": model.StatusCancelled,
}

var transpTokens = map[string]model.Transp{
	"OPAQUE":      model.TranspOpaque,
	"TRANSPARENT": model.TranspTransparent,
}

var actionTokens = map[string]model.AlarmAction{
	"AUDIO":   model.ActionAudio,
	"DISPLAY": model.ActionDisplay,
	"EMAIL":   model.ActionEmail,
}

var freqTokens = map[string]model.Freq{
	"SECONDLY": model.FreqSecondly,
	"MINUTELY": model.FreqMinutely,
	"HOURLY":   model.FreqHourly,
	"DAILY":    model.FreqDaily,
	"WEEKLY":   model.FreqWeekly,
	"MONTHLY":  model.FreqMonthly,
	"YEARLY":   model.FreqYearly,
}

// decodeEnum resolves a token through its table. An unknown token yields the
// zero enumeration value and a diagnostic.
func decodeEnum[T ~int](p *Parser, keyword, v string, tokens map[string]T) T {
	t, ok := tokens[v]
	if !ok {
		p.diag(keyword, v, "unknown enumeration token")
	}
	return t
}
