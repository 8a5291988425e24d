package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// SearchPage is one page of results from the business search endpoint.
// Decoding is lenient: see [Business.UnmarshalJSON].
type SearchPage struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}

// Business is a single listing as returned by the search endpoint.
// Fields are copied verbatim; a value of the wrong JSON type decodes as unset.
type Business struct {
	ID           string            `json:"id"`
	Alias        string            `json:"alias,omitempty"`
	Name         string            `json:"name"`
	Rating       *float64          `json:"rating"`
	ReviewCount  *int              `json:"review_count"`
	Price        string            `json:"price,omitempty"`
	IsClosed     *bool             `json:"is_closed"`
	Phone        string            `json:"phone"`
	DisplayPhone string            `json:"display_phone"`
	URL          string            `json:"url"`
	Coordinates  *Coordinates      `json:"coordinates"`
	Location     *BusinessLocation `json:"location"`
	Categories   []CategoryTag     `json:"categories"`
}

// Coordinates holds the raw coordinate values. They are kept untyped because
// the API occasionally returns null or strings.
type Coordinates struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
}

// BusinessLocation is the nested address block of a listing.
type BusinessLocation struct {
	Address1       string   `json:"address1"`
	Address2       string   `json:"address2"`
	Address3       string   `json:"address3"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zip_code"`
	Country        string   `json:"country,omitempty"`
	DisplayAddress []string `json:"display_address"`
}

// CategoryTag is one category attached to a listing.
type CategoryTag struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

// BusinessDetail is the subset of the detail endpoint response the pipeline uses.
type BusinessDetail struct {
	ID    string       `json:"id"`
	Hours []HoursGroup `json:"hours"`
}

// HoursGroup is one entry of the "hours" list. The first entry holds the
// regular weekly schedule.
type HoursGroup struct {
	Open      []OpenPeriod `json:"open"`
	HoursType string       `json:"hours_type,omitempty"`
	IsOpenNow bool         `json:"is_open_now,omitempty"`
}

// OpenPeriod is a single open interval. Fields are untyped so a malformed
// period drops only itself rather than failing the whole document.
type OpenPeriod struct {
	Day   any `json:"day"`
	Start any `json:"start"`
	End   any `json:"end"`
}

// UnmarshalJSON decodes a page leniently. An unreadable "total" is zero and a
// "businesses" value that is not a list yields no listings.
func (p *SearchPage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Businesses json.RawMessage `json:"businesses"`
		Total      any             `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = SearchPage{}
	if n, ok := integer(raw.Total); ok {
		p.Total = n
	}
	var items []json.RawMessage
	if json.Unmarshal(raw.Businesses, &items) == nil {
		p.Businesses = make([]Business, len(items))
		for i, item := range items {
			_ = p.Businesses[i].UnmarshalJSON(item)
		}
	}
	return nil
}

// UnmarshalJSON decodes one listing without ever failing: scalars of the
// wrong type are left unset, malformed nested blocks are dropped, and a
// listing that is not an object decodes empty (and so has no id).
func (b *Business) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           any             `json:"id"`
		Alias        any             `json:"alias"`
		Name         any             `json:"name"`
		Rating       any             `json:"rating"`
		ReviewCount  any             `json:"review_count"`
		Price        any             `json:"price"`
		IsClosed     any             `json:"is_closed"`
		Phone        any             `json:"phone"`
		DisplayPhone any             `json:"display_phone"`
		URL          any             `json:"url"`
		Coordinates  json.RawMessage `json:"coordinates"`
		Location     json.RawMessage `json:"location"`
		Categories   json.RawMessage `json:"categories"`
	}
	*b = Business{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	b.ID = text(raw.ID)
	b.Alias = text(raw.Alias)
	b.Name = text(raw.Name)
	b.Price = text(raw.Price)
	b.Phone = text(raw.Phone)
	b.DisplayPhone = text(raw.DisplayPhone)
	b.URL = text(raw.URL)
	if f, ok := numeric(raw.Rating); ok {
		b.Rating = &f
	}
	if n, ok := integer(raw.ReviewCount); ok {
		b.ReviewCount = &n
	}
	if v, ok := flag(raw.IsClosed); ok {
		b.IsClosed = &v
	}
	b.Coordinates = nested[Coordinates](raw.Coordinates)
	b.Location = nested[BusinessLocation](raw.Location)

	var tags []json.RawMessage
	if json.Unmarshal(raw.Categories, &tags) == nil {
		for _, t := range tags {
			var tag CategoryTag
			if json.Unmarshal(t, &tag) == nil {
				b.Categories = append(b.Categories, tag)
			}
		}
	}
	return nil
}

// UnmarshalJSON decodes a detail document leniently. A document that is not
// an object has no id, and a malformed hours group has no periods.
func (d *BusinessDetail) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    any             `json:"id"`
		Hours json.RawMessage `json:"hours"`
	}
	*d = BusinessDetail{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}

	d.ID = text(raw.ID)
	var groups []json.RawMessage
	if json.Unmarshal(raw.Hours, &groups) != nil {
		return nil
	}
	d.Hours = make([]HoursGroup, len(groups))
	for i, g := range groups {
		var group HoursGroup
		if json.Unmarshal(g, &group) == nil {
			d.Hours[i] = group
		}
	}
	return nil
}

// nested decodes a nested object, returning nil when it is absent or malformed.
func nested[T any](data json.RawMessage) *T {
	if len(data) == 0 {
		return nil
	}
	var v *T
	if json.Unmarshal(data, &v) != nil {
		return nil
	}
	return v
}

// text returns a decoded JSON string, or the canonical form of a number.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// integer accepts whole JSON numbers, including ones written as 12.0.
func integer(v any) (int, bool) {
	f, ok := numeric(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// flag accepts JSON booleans and their string spellings.
func flag(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	default:
		return false, false
	}
}

// numeric reports the float value of a decoded JSON number.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// weekday converts a decoded day value to an integer weekday.
func weekday(v any) (int, bool) {
	switch d := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(d))
		return n, err == nil
	default:
		f, ok := numeric(v)
		if !ok || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
}
