package domain

import (
	"cmp"
	"slices"
)

// Category is one row of the staging_categories table.
type Category struct {
	Source   string
	SourceID string
	Title    string
	Alias    string
}

// CategoryCount is a leaderboard entry.
type CategoryCount struct {
	Title string
	Count int
}

// CategorySummary describes a category table for stage-end reporting.
type CategorySummary struct {
	Rows        int
	Restaurants int
	Top         []CategoryCount
}

type categoryKey struct {
	id    string
	alias string
}

// NormalizeCategories emits one row per listing and category tag. Rows with a
// missing id or alias are dropped and the first (id, alias) pair wins.
func NormalizeCategories(businesses []Business) []Category {
	seen := make(map[categoryKey]struct{})
	var out []Category

	for _, b := range businesses {
		if b.ID == "" {
			continue
		}
		for _, tag := range b.Categories {
			if tag.Alias == "" {
				continue
			}
			key := categoryKey{id: b.ID, alias: tag.Alias}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Category{
				Source:   Source,
				SourceID: b.ID,
				Title:    tag.Title,
				Alias:    tag.Alias,
			})
		}
	}
	return out
}

// SummarizeCategories counts rows and distinct restaurants and ranks the top n
// titles by the number of rows carrying them. Untitled rows are not ranked.
func SummarizeCategories(categories []Category, n int) CategorySummary {
	ids := make(map[string]struct{})
	counts := make(map[string]int)
	for _, c := range categories {
		ids[c.SourceID] = struct{}{}
		if c.Title != "" {
			counts[c.Title]++
		}
	}

	top := make([]CategoryCount, 0, len(counts))
	for title, count := range counts {
		top = append(top, CategoryCount{Title: title, Count: count})
	}
	slices.SortFunc(top, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Title, b.Title)
	})
	if len(top) > n {
		top = top[:n]
	}

	return CategorySummary{
		Rows:        len(categories),
		Restaurants: len(ids),
		Top:         top,
	}
}
