package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/staging"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/report"
)

type requirement uint8

const (
	needsFetcher requirement = 1 << iota
	needsSink
	needsPublisher
)

// Stage is one named step of the pipeline.
type Stage struct {
	Name  string
	needs requirement
	run   func(p *Pipeline, ctx context.Context) error
}

// NeedsFetcher reports whether the stage calls the API.
func (s Stage) NeedsFetcher() bool { return s.needs&needsFetcher != 0 }

// NeedsSink reports whether the stage writes to the relational sink.
func (s Stage) NeedsSink() bool { return s.needs&needsSink != 0 }

// NeedsPublisher reports whether the stage publishes to Kafka.
func (s Stage) NeedsPublisher() bool { return s.needs&needsPublisher != 0 }

// Offline reports whether the stage only touches local files.
func (s Stage) Offline() bool { return s.needs == 0 }

// Stage names, in run order.
const (
	StageSearch          = "search"
	StageRestaurants     = "restaurants"
	StageCategories      = "categories"
	StageCuisine         = "cuisine"
	StageDetails         = "details"
	StageHours           = "hours"
	StageIndian          = "indian"
	StageLateNight       = "late_night"
	StageLateNightIndian = "late_night_indian"
	StageLoad            = "load"
	StagePublish         = "publish"
)

// Stages returns every stage in run order.
func Stages() []Stage {
	return []Stage{
		{Name: StageSearch, needs: needsFetcher, run: (*Pipeline).search},
		{Name: StageRestaurants, run: (*Pipeline).restaurants},
		{Name: StageCategories, run: (*Pipeline).categories},
		{Name: StageCuisine, run: (*Pipeline).cuisineMap},
		{Name: StageDetails, needs: needsFetcher, run: (*Pipeline).details},
		{Name: StageHours, run: (*Pipeline).hours},
		{Name: StageIndian, run: (*Pipeline).indian},
		{Name: StageLateNight, run: (*Pipeline).lateNight},
		{Name: StageLateNightIndian, run: (*Pipeline).lateNightIndian},
		{Name: StageLoad, needs: needsSink, run: (*Pipeline).load},
		{Name: StagePublish, needs: needsPublisher, run: (*Pipeline).publish},
	}
}

// StageNames returns the names of stages.
func StageNames(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name
	}
	return out
}

// Select resolves command arguments to stages. "run" selects every stage
// (publish only when publishing is enabled), "transform" selects the offline
// stages, and anything else is a list of stage names run in pipeline order.
func Select(args []string, publish bool) ([]Stage, error) {
	all := Stages()
	if len(args) == 0 {
		return nil, errors.New("no stages given")
	}

	switch {
	case len(args) == 1 && args[0] == "run":
		return slices.DeleteFunc(all, func(s Stage) bool { return s.NeedsPublisher() && !publish }), nil
	case len(args) == 1 && args[0] == "transform":
		return slices.DeleteFunc(all, func(s Stage) bool { return !s.Offline() }), nil
	}

	want := make(map[string]bool, len(args))
	for _, a := range args {
		if !slices.ContainsFunc(all, func(s Stage) bool { return s.Name == a }) {
			return nil, fmt.Errorf("unknown stage %q (valid: run, transform, %s)", a, strings.Join(StageNames(all), ", "))
		}
		want[a] = true
	}
	return slices.DeleteFunc(all, func(s Stage) bool { return !want[s.Name] }), nil
}

// search pages through the search endpoint until enough distinct
// restaurants are cached or the results run out.
func (p *Pipeline) search(ctx context.Context) error {
	seen := make(map[string]struct{})
	pages := 0

	for offset := 0; len(seen) < p.cfg.SearchTarget && offset <= p.cfg.SearchMaxOffset; offset += p.cfg.SearchPageSize {
		doc, err := p.fetcher.Search(ctx, offset)
		if err != nil {
			return fmt.Errorf("search offset %d: %w", offset, err)
		}
		if len(doc.Value.Businesses) == 0 {
			p.logger.Info("no more results, stopping", "offset", offset)
			break
		}
		pages++

		for _, b := range doc.Value.Businesses {
			if b.ID != "" {
				seen[b.ID] = struct{}{}
			}
		}
		p.logger.Info("search page stored",
			"offset", offset,
			"page_businesses", len(doc.Value.Businesses),
			"unique_so_far", len(seen),
			"cached", doc.Cached,
		)

		if !doc.Cached && !retry.SleepWithContext(ctx, p.cfg.SearchPageDelay) {
			return ctx.Err()
		}
	}

	p.logger.Info("search complete", "pages", pages, "unique_restaurants", len(seen), "dir", p.cfg.RawDir)
	return nil
}

func (p *Pipeline) restaurants(_ context.Context) error {
	businesses, err := p.raw.Businesses()
	if err != nil {
		return err
	}

	rows := domain.NormalizeRestaurants(businesses)
	missing := 0
	for _, b := range businesses {
		if b.ID == "" {
			missing++
		}
	}
	p.dropped(staging.RestaurantsTable, "missing_id", missing)
	p.dropped(staging.RestaurantsTable, "duplicate", len(businesses)-missing-len(rows))

	if err := writeTable(p, staging.Restaurants, rows); err != nil {
		return err
	}
	p.preview(report.Restaurants("Closest restaurants", rows, 5))
	return nil
}

func (p *Pipeline) categories(_ context.Context) error {
	businesses, err := p.raw.Businesses()
	if err != nil {
		return err
	}

	rows := domain.NormalizeCategories(businesses)
	tags := 0
	for _, b := range businesses {
		tags += len(b.Categories)
	}
	p.dropped(staging.CategoriesTable, "invalid_or_duplicate", tags-len(rows))

	if err := writeTable(p, staging.Categories, rows); err != nil {
		return err
	}

	summary := domain.SummarizeCategories(rows, 10)
	p.logger.Info("categories summarized",
		"rows", summary.Rows,
		"restaurants", summary.Restaurants,
		"distinct_top", len(summary.Top),
	)
	p.preview(report.Categories("Top categories", summary.Top))

	path, err := report.WriteCategoryChart(p.cfg.ReportDir, summary)
	if err != nil {
		return err
	}
	p.logger.Info("category chart written", "path", path)
	return nil
}

func (p *Pipeline) cuisineMap(_ context.Context) error {
	categories, err := staging.Categories.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}

	rows := domain.ClassifyCuisine(categories, p.cuisine)
	if err := writeTable(p, staging.CuisineMap, rows); err != nil {
		return err
	}

	perLabel := make(map[string]int)
	for _, r := range rows {
		perLabel[r.Cuisine]++
	}
	for _, label := range p.cuisine.Labels() {
		p.logger.Info("cuisine classified", "cuisine", label, "restaurants", perLabel[label])
	}
	return nil
}

// details fetches the detail document of the first N restaurants that do
// not have one on disk yet.
func (p *Pipeline) details(ctx context.Context) error {
	restaurants, err := staging.Restaurants.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(restaurants))
	seen := make(map[string]struct{})
	for _, r := range restaurants {
		if r.SourceID == "" {
			continue
		}
		if _, dup := seen[r.SourceID]; dup {
			continue
		}
		seen[r.SourceID] = struct{}{}
		ids = append(ids, r.SourceID)
	}
	ids = ids[:min(len(ids), p.cfg.DetailsMaxBusinesses)]

	saved, skipped := 0, 0
	for i, id := range ids {
		fetched := false
		if p.raw.HasDetail(id) {
			skipped++
		} else {
			if _, err := p.fetcher.Details(ctx, id); err != nil {
				return fmt.Errorf("details %q: %w", id, err)
			}
			saved++
			fetched = true
		}

		// Pause on every tenth id, and only when it cost a request.
		if (i+1)%10 == 0 {
			p.logger.Info("details progress", "done", i+1, "total", len(ids), "saved", saved, "skipped", skipped)
			if fetched && !retry.SleepWithContext(ctx, p.cfg.DetailsPause) {
				return ctx.Err()
			}
		}
	}

	p.logger.Info("details complete", "saved", saved, "skipped", skipped, "dir", p.cfg.DetailsDir)
	return nil
}

func (p *Pipeline) hours(_ context.Context) error {
	details, err := p.raw.Details()
	if err != nil {
		return err
	}

	rows, summary := domain.NormalizeHours(details)
	periods := 0
	for _, d := range details {
		if d.ID != "" && len(d.Hours) > 0 {
			periods += len(d.Hours[0].Open)
		}
	}
	p.dropped(staging.HoursTable, "invalid_or_duplicate", periods-len(rows))

	if err := writeTable(p, staging.Hours, rows); err != nil {
		return err
	}

	p.logger.Info("hours summarized",
		"rows", summary.Rows,
		"restaurants", summary.Restaurants,
		"missing_hours", summary.MissingHours,
		"late_night_restaurants", summary.LateNightRestaurants,
	)

	late := slices.DeleteFunc(slices.Clone(rows), func(h domain.Hours) bool { return !h.IsLateNight })
	p.preview(report.Hours("Sample late-night hours", late, 10))
	return nil
}

func (p *Pipeline) indian(_ context.Context) error {
	restaurants, err := staging.Restaurants.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}
	matches, err := staging.CuisineMap.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}

	rows := domain.IndianView(restaurants, matches)
	if err := writeTable(p, staging.Indian, rows); err != nil {
		return err
	}
	p.preview(report.Restaurants("Top Indian restaurants", rows, 10))
	return nil
}

func (p *Pipeline) lateNight(_ context.Context) error {
	restaurants, err := staging.Restaurants.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}
	hours, err := staging.Hours.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}

	rows := domain.LateNightView(restaurants, hours)
	if err := writeTable(p, staging.LateNight, rows); err != nil {
		return err
	}
	p.preview(report.Restaurants("Top late-night restaurants", rows, 10))
	return nil
}

func (p *Pipeline) lateNightIndian(_ context.Context) error {
	lateNight, err := staging.LateNight.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}
	indian, err := staging.Indian.Read(p.cfg.StagingDir)
	if err != nil {
		return err
	}

	rows := domain.LateNightIndianView(lateNight, indian)
	if err := writeTable(p, staging.LateNightIndian, rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		p.logger.Info("no late-night Indian restaurants in this data")
	}
	p.preview(report.Restaurants("Late-night Indian restaurants", rows, 10))
	return nil
}

func (p *Pipeline) load(ctx context.Context) error {
	res, err := p.sink.LoadAll(ctx, p.cfg.StagingDir, staging.Schemas())
	if err != nil {
		return err
	}
	p.logger.Info("load complete", "tables", len(res.Loaded), "skipped", res.Skipped)
	return nil
}

func (p *Pipeline) publish(ctx context.Context) error {
	views := []staging.Table[domain.Restaurant]{staging.Indian, staging.LateNight, staging.LateNightIndian}
	for _, v := range views {
		rows, err := v.Read(p.cfg.StagingDir)
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("view missing, skipping", "view", v.Name)
			continue
		}
		if err != nil {
			return err
		}
		if err := p.publisher.PublishView(ctx, v.Name, p.runID, rows); err != nil {
			return err
		}
	}
	return nil
}
