package domain

import "strings"

const (
	// LateNightCutoff is compared as a string against rendered end times.
	LateNightCutoff = "23:00"

	// timeSeparator joins hours and minutes in rendered tokens.
	timeSeparator = " : "
)

// Hours is one row of the staging_hours table.
type Hours struct {
	Source      string
	SourceID    string
	Day         int
	Start       string
	End         string
	IsOvernight bool
	IsLateNight bool
}

// HoursSummary describes an hours table for stage-end reporting.
type HoursSummary struct {
	Rows                 int
	Restaurants          int
	MissingHours         int
	LateNightRestaurants int
}

type hoursKey struct {
	id    string
	day   int
	start string
	end   string
}

// NormalizeTimeToken renders a four-digit HHMM token as "HH : MM". Anything
// other than exactly four ASCII digits after trimming is rejected.
func NormalizeTimeToken(token string) (string, bool) {
	s := strings.TrimSpace(token)
	if len(s) != 4 {
		return "", false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", false
		}
	}
	return s[:2] + timeSeparator + s[2:], true
}

// ClassifyPeriod flags a period as overnight when its end sorts before its
// start, and as late-night when it is overnight or its end sorts at or after
// [LateNightCutoff]. Both comparisons are on the rendered strings.
func ClassifyPeriod(start, end string) (overnight, lateNight bool) {
	overnight = end < start
	lateNight = overnight || end >= LateNightCutoff
	return overnight, lateNight
}

func rawToken(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return NormalizeTimeToken(s)
}

// NormalizeHours flattens the first hours group of every detail document into
// one row per open period. Periods with a malformed day or time are dropped.
func NormalizeHours(details []BusinessDetail) ([]Hours, HoursSummary) {
	var (
		out     []Hours
		summary HoursSummary
	)
	seen := make(map[hoursKey]struct{})

	for _, d := range details {
		if d.ID == "" {
			continue
		}
		if len(d.Hours) == 0 {
			summary.MissingHours++
			continue
		}

		for _, p := range d.Hours[0].Open {
			day, dayOK := weekday(p.Day)
			start, startOK := rawToken(p.Start)
			end, endOK := rawToken(p.End)
			if !dayOK || !startOK || !endOK {
				continue
			}

			key := hoursKey{id: d.ID, day: day, start: start, end: end}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			overnight, late := ClassifyPeriod(start, end)
			out = append(out, Hours{
				Source:      Source,
				SourceID:    d.ID,
				Day:         day,
				Start:       start,
				End:         end,
				IsOvernight: overnight,
				IsLateNight: late,
			})
		}
	}

	ids := make(map[string]struct{})
	for _, h := range out {
		ids[h.SourceID] = struct{}{}
	}
	summary.Rows = len(out)
	summary.Restaurants = len(ids)
	summary.LateNightRestaurants = len(LateNightIDs(out))
	return out, summary
}

// LateNightIDs reduces hours rows per restaurant with logical OR and returns
// the ids whose reduced flag is set.
func LateNightIDs(hours []Hours) map[string]bool {
	flags := make(map[string]bool)
	for _, h := range hours {
		flags[h.SourceID] = flags[h.SourceID] || h.IsLateNight
	}
	for id, late := range flags {
		if !late {
			delete(flags, id)
		}
	}
	return flags
}
