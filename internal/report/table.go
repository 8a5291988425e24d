// Package report renders stage summaries for people: aligned console tables
// and an HTML chart of the category leaderboard.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
)

const maxCellWidth = 40

// Table is a titled grid of preformatted cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Render writes the table with columns padded to their display width, so
// names with wide characters stay aligned.
func (t Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Header))
	cells := make([][]string, 0, len(t.Rows)+1)
	cells = append(cells, t.Header)
	for _, row := range t.Rows {
		cells = append(cells, row)
	}

	for r, row := range cells {
		clipped := make([]string, len(t.Header))
		for i := range clipped {
			if i < len(row) {
				clipped[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			}
			widths[i] = max(widths[i], runewidth.StringWidth(clipped[i]))
		}
		cells[r] = clipped
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteByte('\n')
	}
	for r, row := range cells {
		for i, cell := range row {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(row)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		b.WriteByte('\n')
		if r == 0 {
			for i, width := range widths {
				if i > 0 {
					b.WriteString("  ")
				}
				b.WriteString(strings.Repeat("-", width))
			}
			b.WriteByte('\n')
		}
	}
	if len(t.Rows) == 0 {
		b.WriteString("(no rows)\n")
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}

// Restaurants previews the first n rows of a restaurant table.
func Restaurants(title string, rows []domain.Restaurant, n int) Table {
	t := Table{Title: title, Header: []string{"name", "rating", "reviews", "price", "miles"}}
	for _, r := range rows[:min(n, len(rows))] {
		t.Rows = append(t.Rows, []string{
			r.Name,
			formatFloat(r.Rating, 1),
			formatInt(r.ReviewCount),
			r.Price,
			formatFloat(r.DistanceMiles, 2),
		})
	}
	return t
}

// Categories previews a category leaderboard.
func Categories(title string, top []domain.CategoryCount) Table {
	t := Table{Title: title, Header: []string{"category", "restaurants"}}
	for _, c := range top {
		t.Rows = append(t.Rows, []string{c.Title, strconv.Itoa(c.Count)})
	}
	return t
}

// Hours previews the first n hours rows.
func Hours(title string, rows []domain.Hours, n int) Table {
	t := Table{Title: title, Header: []string{"source_id", "day", "start", "end", "overnight", "late_night"}}
	for _, h := range rows[:min(n, len(rows))] {
		t.Rows = append(t.Rows, []string{
			h.SourceID,
			strconv.Itoa(h.Day),
			h.Start,
			h.End,
			strconv.FormatBool(h.IsOvernight),
			strconv.FormatBool(h.IsLateNight),
		})
	}
	return t
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(*v)
}
