// Command validate checks the staging tables for the invariants the pipeline
// promises: unique keys, well-formed hours, classification drawn only from
// the cuisine mapping, and derived views consistent with their inputs.
//
// Usage:
//
//	go run ./cmd/validate -staging-dir data/staging -cuisine-map cuisines.yaml
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/staging"
	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// tables holds every staging table read from disk.
type tables struct {
	restaurants     []domain.Restaurant
	categories      []domain.Category
	cuisine         []domain.CuisineMatch
	hours           []domain.Hours
	indian          []domain.Restaurant
	lateNight       []domain.Restaurant
	lateNightIndian []domain.Restaurant
}

var tokenPattern = regexp.MustCompile(`^\d{2} : \d{2}$`)

func main() {
	stagingDir := flag.String("staging-dir", "data/staging", "directory containing the staging CSV files")
	cuisineMap := flag.String("cuisine-map", "", "optional YAML cuisine mapping used by the run")
	flag.Parse()

	if code := run(os.Stdout, *stagingDir, *cuisineMap); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, stagingDir, cuisineMapPath string) int {
	mapping, err := config.LoadCuisineMapping(cuisineMapPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load cuisine map: %v\n", err)
		return 1
	}

	t, err := load(stagingDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	fmt.Fprintln(w, "=== Staging Table Validation ===")
	fmt.Fprintln(w)

	phases := []*phase{
		validateRestaurants(t),
		validateCategories(t),
		validateCuisine(t, mapping),
		validateHours(t),
		validateViews(t),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d restaurants, %d categories, %d cuisine, %d hours, %d indian, %d late-night, %d late-night indian\n",
		len(t.restaurants), len(t.categories), len(t.cuisine), len(t.hours), len(t.indian), len(t.lateNight), len(t.lateNightIndian))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func load(dir string) (tables, error) {
	var (
		t   tables
		err error
	)
	if t.restaurants, err = staging.Restaurants.Read(dir); err != nil {
		return t, err
	}
	if t.categories, err = staging.Categories.Read(dir); err != nil {
		return t, err
	}
	if t.cuisine, err = staging.CuisineMap.Read(dir); err != nil {
		return t, err
	}
	if t.hours, err = staging.Hours.Read(dir); err != nil {
		return t, err
	}
	if t.indian, err = staging.Indian.Read(dir); err != nil {
		return t, err
	}
	if t.lateNight, err = staging.LateNight.Read(dir); err != nil {
		return t, err
	}
	if t.lateNightIndian, err = staging.LateNightIndian.Read(dir); err != nil {
		return t, err
	}
	return t, nil
}

// ── Phases ──

func validateRestaurants(t tables) *phase {
	p := &phase{name: "Restaurants: unique ids, distance order"}
	seen := make(map[string]bool, len(t.restaurants))
	for i, r := range t.restaurants {
		switch {
		case r.SourceID == "":
			p.errorf("row %d: empty source_id", i+1)
		case seen[r.SourceID]:
			p.errorf("row %d: duplicate source_id %q", i+1, r.SourceID)
		}
		seen[r.SourceID] = true

		if r.Source != domain.Source {
			p.errorf("row %d: source %q, want %q", i+1, r.Source, domain.Source)
		}
		if r.DistanceMiles != nil && *r.DistanceMiles < 0 {
			p.errorf("row %d: negative distance %v", i+1, *r.DistanceMiles)
		}
	}

	sorted := slices.Clone(t.restaurants)
	domain.SortByDistance(sorted)
	if !slices.EqualFunc(sorted, t.restaurants, sameID) {
		p.errorf("rows are not ordered by distance with unknown distances last")
	}
	return p
}

func validateCategories(t tables) *phase {
	p := &phase{name: "Categories: unique (id, alias), known ids"}
	ids := idSet(t.restaurants)
	type key struct{ id, alias string }
	seen := make(map[key]bool, len(t.categories))
	for i, c := range t.categories {
		k := key{c.SourceID, c.Alias}
		if c.SourceID == "" || c.Alias == "" {
			p.errorf("row %d: missing source_id or alias", i+1)
		}
		if seen[k] {
			p.errorf("row %d: duplicate (%s, %s)", i+1, c.SourceID, c.Alias)
		}
		seen[k] = true
		if !ids[c.SourceID] {
			p.errorf("row %d: source_id %q not in restaurants", i+1, c.SourceID)
		}
	}
	return p
}

func validateCuisine(t tables, mapping domain.CuisineMapping) *phase {
	p := &phase{name: "Cuisine map: labels from mapping only"}
	type key struct{ id, cuisine string }
	seen := make(map[key]bool, len(t.cuisine))
	for i, c := range t.cuisine {
		label, ok := mapping[c.Alias]
		if !ok {
			p.errorf("row %d: alias %q is not mapped", i+1, c.Alias)
		} else if label != c.Cuisine {
			p.errorf("row %d: alias %q labelled %q, mapping says %q", i+1, c.Alias, c.Cuisine, label)
		}
		k := key{c.SourceID, c.Cuisine}
		if seen[k] {
			p.errorf("row %d: duplicate (%s, %s)", i+1, c.SourceID, c.Cuisine)
		}
		seen[k] = true
	}
	return p
}

func validateHours(t tables) *phase {
	p := &phase{name: "Hours: token format, flags, unique periods"}
	type key struct {
		id         string
		day        int
		start, end string
	}
	seen := make(map[key]bool, len(t.hours))
	for i, h := range t.hours {
		if !tokenPattern.MatchString(h.Start) || !tokenPattern.MatchString(h.End) {
			p.errorf("row %d: malformed time %q-%q", i+1, h.Start, h.End)
		}
		overnight, late := domain.ClassifyPeriod(h.Start, h.End)
		if overnight != h.IsOvernight || late != h.IsLateNight {
			p.errorf("row %d: flags (%t, %t), want (%t, %t)", i+1, h.IsOvernight, h.IsLateNight, overnight, late)
		}
		k := key{h.SourceID, h.Day, h.Start, h.End}
		if seen[k] {
			p.errorf("row %d: duplicate period for %s", i+1, h.SourceID)
		}
		seen[k] = true
	}
	return p
}

func validateViews(t tables) *phase {
	p := &phase{name: "Views: consistent with staging tables"}

	wantIndian := domain.IndianView(t.restaurants, t.cuisine)
	if !slices.EqualFunc(wantIndian, t.indian, sameID) {
		p.errorf("indian_restaurants has %v, want %v", ids(t.indian), ids(wantIndian))
	}

	wantLate := domain.LateNightView(t.restaurants, t.hours)
	if !slices.EqualFunc(wantLate, t.lateNight, sameID) {
		p.errorf("late_night_restaurants has %v, want %v", ids(t.lateNight), ids(wantLate))
	}

	indianIDs := idSet(t.indian)
	lateIDs := idSet(t.lateNight)
	for _, r := range t.lateNightIndian {
		if !indianIDs[r.SourceID] || !lateIDs[r.SourceID] {
			p.errorf("late_night_indian_restaurants: %q is not in both views", r.SourceID)
		}
	}
	wantBoth := domain.LateNightIndianView(t.lateNight, t.indian)
	if !slices.EqualFunc(wantBoth, t.lateNightIndian, sameID) {
		p.errorf("late_night_indian_restaurants has %v, want %v", ids(t.lateNightIndian), ids(wantBoth))
	}
	return p
}

// ── Helpers ──

func sameID(a, b domain.Restaurant) bool { return a.SourceID == b.SourceID }

func idSet(rows []domain.Restaurant) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.SourceID] = true
	}
	return out
}

func ids(rows []domain.Restaurant) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.SourceID
	}
	return out
}
