package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/fileutil"
)

// CategoryChartFile is the file name of the leaderboard chart inside the report dir.
const CategoryChartFile = "top_categories.html"

// CategoryChart builds a bar chart of restaurants per category.
func CategoryChart(summary domain.CategorySummary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Top categories",
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Top categories",
			Subtitle: fmt.Sprintf("%d restaurants, %d category rows", summary.Restaurants, summary.Rows),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	titles := make([]string, len(summary.Top))
	data := make([]opts.BarData, len(summary.Top))
	for i, c := range summary.Top {
		titles[i] = c.Title
		data[i] = opts.BarData{Name: c.Title, Value: c.Count}
	}
	bar.SetXAxis(titles).AddSeries("restaurants", data,
		charts.WithLabelOpts(opts.Label{
			Show:     opts.Bool(true),
			Position: "top",
		}),
	)
	return bar
}

// WriteCategoryChart renders the leaderboard chart into dir and returns its path.
func WriteCategoryChart(dir string, summary domain.CategorySummary) (string, error) {
	path := filepath.Join(dir, CategoryChartFile)
	bar := CategoryChart(summary)
	err := fileutil.WriteAtomic(path, func(w io.Writer) error {
		return bar.Render(w)
	})
	if err != nil {
		return "", fmt.Errorf("render category chart: %w", err)
	}
	return path, nil
}
