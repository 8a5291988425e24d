package domain

// CuisineIndian is the canonical label the derived views filter on.
const CuisineIndian = "Indian"

// CuisineMapping maps a category alias to a canonical cuisine label.
type CuisineMapping map[string]string

// DefaultCuisineMapping returns the built-in alias table.
func DefaultCuisineMapping() CuisineMapping {
	return CuisineMapping{
		"indpak":       CuisineIndian,
		"pakistani":    CuisineIndian,
		"himalayan":    CuisineIndian,
		"indianfusion": CuisineIndian,
	}
}

// Labels returns the distinct canonical labels in the mapping.
func (m CuisineMapping) Labels() []string {
	seen := make(map[string]struct{}, len(m))
	var out []string
	for _, label := range m {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// CuisineMatch is one row of the staging_cuisine_map table.
type CuisineMatch struct {
	Source   string
	SourceID string
	Title    string
	Alias    string
	Cuisine  string
}

type cuisineKey struct {
	id      string
	cuisine string
}

// ClassifyCuisine keeps categories whose alias is mapped and attaches the
// canonical label. A restaurant appears at most once per label; the first
// qualifying category supplies the title and alias.
func ClassifyCuisine(categories []Category, mapping CuisineMapping) []CuisineMatch {
	seen := make(map[cuisineKey]struct{})
	var out []CuisineMatch

	for _, c := range categories {
		label, ok := mapping[c.Alias]
		if !ok {
			continue
		}
		key := cuisineKey{id: c.SourceID, cuisine: label}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, CuisineMatch{
			Source:   c.Source,
			SourceID: c.SourceID,
			Title:    c.Title,
			Alias:    c.Alias,
			Cuisine:  label,
		})
	}
	return out
}
