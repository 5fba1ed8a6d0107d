package holiday

import "time"

const dateLayout = "2006-01-02"

// Holiday is a calendar date marked non-working, scoped to a company or a country.
type Holiday struct {
	Date  time.Time
	Name  string
	Scope string
}

// Holiday scopes.
const (
	ScopeCompany  = "company"
	ScopeNational = "national"
)

// Set holds non-working dates keyed by civil date, independent of time of day.
type Set map[string]struct{}

// NewSet builds a Set from the given dates.
func NewSet(dates ...time.Time) Set {
	s := make(Set, len(dates))
	for _, d := range dates {
		s.Add(d)
	}
	return s
}

// Add inserts a date into the set.
func (s Set) Add(date time.Time) {
	s[date.Format(dateLayout)] = struct{}{}
}

// Contains reports whether the date is in the set.
func (s Set) Contains(date time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s[date.Format(dateLayout)]
	return ok
}

// Dates returns the member dates for serialization. Order is unspecified.
func (s Set) Dates() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// SetFromDates rebuilds a Set from serialized dates, skipping malformed entries.
func SetFromDates(dates []string) Set {
	s := make(Set, len(dates))
	for _, raw := range dates {
		if _, err := time.Parse(dateLayout, raw); err != nil {
			continue
		}
		s[raw] = struct{}{}
	}
	return s
}

// Union merges the receiver with another set into a new Set.
func (s Set) Union(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for k := range s {
		merged[k] = struct{}{}
	}
	for k := range other {
		merged[k] = struct{}{}
	}
	return merged
}
