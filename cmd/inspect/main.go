// Command inspect prints one business from a cached search page, which is
// handy when checking how the API shapes a listing before it is flattened.
//
// Usage:
//
//	go run ./cmd/inspect -offset 0 -index 3
//	go run ./cmd/inspect -id <business-id>
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/rawstore"
	"github.com/couchcryptid/restaurant-staging-etl/internal/config"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/report"
)

func main() {
	offset := flag.Int("offset", 0, "search page offset to read")
	index := flag.Int("index", 0, "position of the business within the page")
	id := flag.String("id", "", "business id to look up across all cached pages (overrides -offset/-index)")
	flag.Parse()

	if code := run(os.Stdout, *offset, *index, *id); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, offset, index int, id string) int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "FATAL: load .env: %v\n", err)
		return 1
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}

	b, err := find(rawstore.New(cfg.RawDir, cfg.DetailsDir), offset, index, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	for _, t := range describe(b) {
		if err := t.Render(w); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: write: %v\n", err)
			return 1
		}
	}
	return 0
}

func find(store *rawstore.Store, offset, index int, id string) (domain.Business, error) {
	if id != "" {
		all, err := store.Businesses()
		if err != nil {
			return domain.Business{}, err
		}
		for _, b := range all {
			if b.ID == id {
				return b, nil
			}
		}
		return domain.Business{}, fmt.Errorf("business %q not found in cached pages", id)
	}

	page, ok, err := store.ReadPage(offset)
	if err != nil {
		return domain.Business{}, err
	}
	if !ok {
		return domain.Business{}, fmt.Errorf("%w: %s", rawstore.ErrNoRawDocuments, store.PagePath(offset))
	}
	if index < 0 || index >= len(page.Businesses) {
		return domain.Business{}, fmt.Errorf("index %d out of range: page has %d businesses", index, len(page.Businesses))
	}
	return page.Businesses[index], nil
}

// describe splits a listing into the sections printed by the command.
func describe(b domain.Business) []report.Table {
	basic := report.Table{
		Title:  "Basic",
		Header: []string{"field", "value"},
		Rows: [][]string{
			{"id", b.ID},
			{"name", b.Name},
			{"rating", optional(b.Rating, func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) })},
			{"review_count", optional(b.ReviewCount, strconv.Itoa)},
			{"price", b.Price},
			{"is_closed", optional(b.IsClosed, strconv.FormatBool)},
			{"phone", b.DisplayPhone},
			{"url", b.URL},
		},
	}

	coords := report.Table{Title: "Coordinates", Header: []string{"field", "value"}}
	if b.Coordinates != nil {
		coords.Rows = [][]string{
			{"latitude", fmt.Sprint(b.Coordinates.Latitude)},
			{"longitude", fmt.Sprint(b.Coordinates.Longitude)},
		}
	}

	loc := report.Table{Title: "Location", Header: []string{"field", "value"}}
	if l := b.Location; l != nil {
		loc.Rows = [][]string{
			{"address1", l.Address1},
			{"address2", l.Address2},
			{"address3", l.Address3},
			{"city", l.City},
			{"state", l.State},
			{"zip_code", l.ZipCode},
		}
		for i, line := range l.DisplayAddress {
			loc.Rows = append(loc.Rows, []string{"display_address[" + strconv.Itoa(i) + "]", line})
		}
	}

	cats := report.Table{Title: "Categories", Header: []string{"alias", "title"}}
	for _, c := range b.Categories {
		cats.Rows = append(cats.Rows, []string{c.Alias, c.Title})
	}

	return []report.Table{basic, coords, loc, cats}
}

func optional[T any](v *T, format func(T) string) string {
	if v == nil {
		return ""
	}
	return format(*v)
}
