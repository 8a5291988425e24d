package domain

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	// Source tags every staging row with the upstream system.
	Source = "yelp"

	// ReferenceLat and ReferenceLon locate the UCF main campus, the point all
	// distances are measured from.
	ReferenceLat = 28.6024
	ReferenceLon = -81.2001

	// EarthRadiusMiles is the mean Earth radius used by [HaversineMiles].
	EarthRadiusMiles = 3958.7613
)

// Restaurant is one row of the staging_restaurants table.
type Restaurant struct {
	Source        string
	SourceID      string
	Name          string
	Rating        *float64
	ReviewCount   *int
	Price         string
	IsClosed      *bool
	Phone         string
	DisplayPhone  string
	URL           string
	Latitude      *float64
	Longitude     *float64
	DistanceMiles *float64
	Address1      string
	Address2      string
	Address3      string
	City          string
	State         string
	ZipCode       string
	FullAddress   string
}

// HaversineMiles returns the great-circle distance between two points in miles.
func HaversineMiles(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	a := math.Pow(math.Sin(dPhi/2), 2) + math.Cos(phi1)*math.Cos(phi2)*math.Pow(math.Sin(dLambda/2), 2)
	return EarthRadiusMiles * 2 * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NormalizeRestaurants flattens search listings into restaurant rows.
// Listings without an id are dropped, the first row per id wins, and the
// result is ordered by distance with unknown distances last.
func NormalizeRestaurants(businesses []Business) []Restaurant {
	seen := make(map[string]struct{}, len(businesses))
	out := make([]Restaurant, 0, len(businesses))

	for _, b := range businesses {
		if b.ID == "" {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		out = append(out, restaurantFromBusiness(b))
	}

	SortByDistance(out)
	return out
}

func restaurantFromBusiness(b Business) Restaurant {
	r := Restaurant{
		Source:       Source,
		SourceID:     b.ID,
		Name:         b.Name,
		Rating:       b.Rating,
		ReviewCount:  b.ReviewCount,
		Price:        b.Price,
		IsClosed:     b.IsClosed,
		Phone:        b.Phone,
		DisplayPhone: b.DisplayPhone,
		URL:          b.URL,
	}

	if b.Coordinates != nil {
		lat, latOK := numeric(b.Coordinates.Latitude)
		lon, lonOK := numeric(b.Coordinates.Longitude)
		if latOK {
			r.Latitude = &lat
		}
		if lonOK {
			r.Longitude = &lon
		}
		if latOK && lonOK {
			d := HaversineMiles(ReferenceLat, ReferenceLon, lat, lon)
			r.DistanceMiles = &d
		}
	}

	if loc := b.Location; loc != nil {
		r.Address1 = loc.Address1
		r.Address2 = loc.Address2
		r.Address3 = loc.Address3
		r.City = loc.City
		r.State = loc.State
		r.ZipCode = loc.ZipCode
		r.FullAddress = joinAddress(loc.DisplayAddress)
	}
	return r
}

func joinAddress(lines []string) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", ")
}

// SortByDistance orders restaurants nearest first, unknown distances last.
func SortByDistance(rs []Restaurant) {
	slices.SortStableFunc(rs, func(a, b Restaurant) int {
		return compareNullable(a.DistanceMiles, b.DistanceMiles, false)
	})
}

// SortByRating orders restaurants by rating and review count descending, then
// distance ascending. Missing values sort last for every key.
func SortByRating(rs []Restaurant) {
	slices.SortStableFunc(rs, func(a, b Restaurant) int {
		if c := compareNullable(a.Rating, b.Rating, true); c != 0 {
			return c
		}
		if c := compareNullable(a.ReviewCount, b.ReviewCount, true); c != 0 {
			return c
		}
		return compareNullable(a.DistanceMiles, b.DistanceMiles, false)
	})
}

// compareNullable orders nil after every value regardless of direction.
func compareNullable[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b, *a)
	}
	return cmp.Compare(*a, *b)
}
