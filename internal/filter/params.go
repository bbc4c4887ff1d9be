package filter

import (
	"net/url"
	"strings"
	"time"
)

// URL parameter names shared with the presentation layer.
const (
	ParamStart        = "start"
	ParamEnd          = "end"
	ParamCategories   = "categories"
	ParamSeverities   = "severities"
	ParamUrgencies    = "urgencies"
	ParamStatuses     = "statuses"
	ParamMessageTypes = "types"
	ParamSearch       = "q"
	ParamSelected     = "alert"
)

const dateLayout = "2006-01-02"

// DayStart returns 00:00:00 UTC on t's calendar day.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayEnd returns the last nanosecond of t's calendar day in UTC.
func DayEnd(t time.Time) time.Time {
	return DayStart(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// EncodeParams serializes spec and the selected alert id. Empty values are
// omitted rather than written as empty parameters.
func EncodeParams(spec Spec, selectedID string) url.Values {
	v := url.Values{}
	if spec.Start != nil {
		v.Set(ParamStart, spec.Start.UTC().Format(dateLayout))
	}
	if spec.End != nil {
		v.Set(ParamEnd, spec.End.UTC().Format(dateLayout))
	}
	setList(v, ParamCategories, spec.Categories)
	setList(v, ParamSeverities, spec.Severities)
	setList(v, ParamUrgencies, spec.Urgencies)
	setList(v, ParamStatuses, spec.Statuses)
	setList(v, ParamMessageTypes, spec.MessageTypes)
	if strings.TrimSpace(spec.SearchText) != "" {
		v.Set(ParamSearch, spec.SearchText)
	}
	if selectedID != "" {
		v.Set(ParamSelected, selectedID)
	}
	return v
}

// DecodeParams is the inverse of EncodeParams. Start dates decode to the
// beginning of the day and end dates to its last instant; unparseable dates
// are ignored.
func DecodeParams(v url.Values) (Spec, string) {
	var spec Spec
	if t, err := time.Parse(dateLayout, v.Get(ParamStart)); err == nil {
		start := DayStart(t)
		spec.Start = &start
	}
	if t, err := time.Parse(dateLayout, v.Get(ParamEnd)); err == nil {
		end := DayEnd(t)
		spec.End = &end
	}
	spec.Categories = getList(v, ParamCategories)
	spec.Severities = getList(v, ParamSeverities)
	spec.Urgencies = getList(v, ParamUrgencies)
	spec.Statuses = getList(v, ParamStatuses)
	spec.MessageTypes = getList(v, ParamMessageTypes)
	if q := v.Get(ParamSearch); strings.TrimSpace(q) != "" {
		spec.SearchText = q
	}
	return spec, v.Get(ParamSelected)
}

func setList(v url.Values, key string, values []string) {
	if len(values) == 0 {
		return
	}
	v.Set(key, strings.Join(values, ","))
}

func getList(v url.Values, key string) []string {
	raw := v.Get(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
