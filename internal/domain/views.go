package domain

// IndianView returns the restaurants classified as Indian, best rated first.
func IndianView(restaurants []Restaurant, matches []CuisineMatch) []Restaurant {
	ids := make(map[string]bool)
	for _, m := range matches {
		if m.Cuisine == CuisineIndian {
			ids[m.SourceID] = true
		}
	}
	return ratedSubset(restaurants, ids)
}

// LateNightView returns the restaurants with at least one late-night period,
// best rated first.
func LateNightView(restaurants []Restaurant, hours []Hours) []Restaurant {
	return ratedSubset(restaurants, LateNightIDs(hours))
}

// LateNightIndianView joins the late-night view with the Indian view on id.
// Rows and their order come from the late-night view. The result is never nil.
func LateNightIndianView(lateNight, indian []Restaurant) []Restaurant {
	ids := make(map[string]bool, len(indian))
	for _, r := range indian {
		ids[r.SourceID] = true
	}
	out := make([]Restaurant, 0)
	for _, r := range lateNight {
		if ids[r.SourceID] {
			out = append(out, r)
		}
	}
	return out
}

func ratedSubset(restaurants []Restaurant, ids map[string]bool) []Restaurant {
	out := make([]Restaurant, 0, len(ids))
	for _, r := range restaurants {
		if ids[r.SourceID] {
			out = append(out, r)
		}
	}
	SortByRating(out)
	return out
}
