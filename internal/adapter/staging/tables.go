package staging

import "github.com/couchcryptid/restaurant-staging-etl/internal/domain"

// Table names. They double as CSV file stems and sink table names.
const (
	RestaurantsTable     = "staging_restaurants"
	CategoriesTable      = "staging_categories"
	CuisineMapTable      = "staging_cuisine_map"
	HoursTable           = "staging_hours"
	IndianTable          = "indian_restaurants"
	LateNightTable       = "late_night_restaurants"
	LateNightIndianTable = "late_night_indian_restaurants"
)

type restaurantCol = Column[domain.Restaurant]

func sourceIDCol() restaurantCol {
	return textCol("source_id", func(r *domain.Restaurant) *string { return &r.SourceID })
}

func nameCol() restaurantCol {
	return textCol("name", func(r *domain.Restaurant) *string { return &r.Name })
}

func ratingCol() restaurantCol {
	return floatCol("rating", func(r *domain.Restaurant) **float64 { return &r.Rating })
}

func reviewCountCol() restaurantCol {
	return nullableIntCol("review_count", func(r *domain.Restaurant) **int { return &r.ReviewCount })
}

func priceCol() restaurantCol {
	return textCol("price", func(r *domain.Restaurant) *string { return &r.Price })
}

func distanceCol() restaurantCol {
	return floatCol("distance_to_ucf_miles", func(r *domain.Restaurant) **float64 { return &r.DistanceMiles })
}

func fullAddressCol() restaurantCol {
	return textCol("full_address", func(r *domain.Restaurant) *string { return &r.FullAddress })
}

func urlCol() restaurantCol {
	return textCol("url", func(r *domain.Restaurant) *string { return &r.URL })
}

func cityCol() restaurantCol {
	return textCol("city", func(r *domain.Restaurant) *string { return &r.City })
}

func stateCol() restaurantCol {
	return textCol("state", func(r *domain.Restaurant) *string { return &r.State })
}

func zipCol() restaurantCol {
	return textCol("zip_code", func(r *domain.Restaurant) *string { return &r.ZipCode })
}

// Restaurants is the staging_restaurants codec.
var Restaurants = Table[domain.Restaurant]{
	Name: RestaurantsTable,
	Columns: []restaurantCol{
		textCol("source", func(r *domain.Restaurant) *string { return &r.Source }),
		sourceIDCol(),
		nameCol(),
		ratingCol(),
		reviewCountCol(),
		priceCol(),
		nullableBoolCol("is_closed", func(r *domain.Restaurant) **bool { return &r.IsClosed }),
		textCol("phone", func(r *domain.Restaurant) *string { return &r.Phone }),
		textCol("display_phone", func(r *domain.Restaurant) *string { return &r.DisplayPhone }),
		urlCol(),
		floatCol("latitude", func(r *domain.Restaurant) **float64 { return &r.Latitude }),
		floatCol("longitude", func(r *domain.Restaurant) **float64 { return &r.Longitude }),
		distanceCol(),
		textCol("address1", func(r *domain.Restaurant) *string { return &r.Address1 }),
		textCol("address2", func(r *domain.Restaurant) *string { return &r.Address2 }),
		textCol("address3", func(r *domain.Restaurant) *string { return &r.Address3 }),
		cityCol(),
		stateCol(),
		zipCol(),
		fullAddressCol(),
	},
}

// Categories is the staging_categories codec.
var Categories = Table[domain.Category]{
	Name: CategoriesTable,
	Columns: []Column[domain.Category]{
		textCol("source", func(c *domain.Category) *string { return &c.Source }),
		textCol("source_id", func(c *domain.Category) *string { return &c.SourceID }),
		textCol("category_title", func(c *domain.Category) *string { return &c.Title }),
		textCol("category_alias", func(c *domain.Category) *string { return &c.Alias }),
	},
}

// CuisineMap is the staging_cuisine_map codec.
var CuisineMap = Table[domain.CuisineMatch]{
	Name: CuisineMapTable,
	Columns: []Column[domain.CuisineMatch]{
		textCol("source", func(c *domain.CuisineMatch) *string { return &c.Source }),
		textCol("source_id", func(c *domain.CuisineMatch) *string { return &c.SourceID }),
		textCol("category_title", func(c *domain.CuisineMatch) *string { return &c.Title }),
		textCol("category_alias", func(c *domain.CuisineMatch) *string { return &c.Alias }),
		textCol("canonical_cuisine", func(c *domain.CuisineMatch) *string { return &c.Cuisine }),
	},
}

// Hours is the staging_hours codec.
var Hours = Table[domain.Hours]{
	Name: HoursTable,
	Columns: []Column[domain.Hours]{
		textCol("source", func(h *domain.Hours) *string { return &h.Source }),
		textCol("source_id", func(h *domain.Hours) *string { return &h.SourceID }),
		intCol("day", func(h *domain.Hours) *int { return &h.Day }),
		textCol("start_time", func(h *domain.Hours) *string { return &h.Start }),
		textCol("end_time", func(h *domain.Hours) *string { return &h.End }),
		boolCol("is_overnight", func(h *domain.Hours) *bool { return &h.IsOvernight }),
		boolCol("is_late_night_11pm", func(h *domain.Hours) *bool { return &h.IsLateNight }),
	},
}

// Indian is the indian_restaurants codec.
var Indian = Table[domain.Restaurant]{
	Name: IndianTable,
	Columns: []restaurantCol{
		sourceIDCol(),
		nameCol(),
		ratingCol(),
		reviewCountCol(),
		priceCol(),
		distanceCol(),
		fullAddressCol(),
		cityCol(),
		stateCol(),
		zipCol(),
		urlCol(),
	},
}

func lateNightColumns() []restaurantCol {
	return []restaurantCol{
		sourceIDCol(),
		nameCol(),
		ratingCol(),
		reviewCountCol(),
		priceCol(),
		distanceCol(),
		fullAddressCol(),
		urlCol(),
	}
}

// LateNight is the late_night_restaurants codec.
var LateNight = Table[domain.Restaurant]{Name: LateNightTable, Columns: lateNightColumns()}

// LateNightIndian is the late_night_indian_restaurants codec.
var LateNightIndian = Table[domain.Restaurant]{Name: LateNightIndianTable, Columns: lateNightColumns()}

// Schemas lists every table in the order the sink loads them.
func Schemas() []Schema {
	return []Schema{
		Restaurants.Schema(),
		Categories.Schema(),
		CuisineMap.Schema(),
		Hours.Schema(),
		Indian.Schema(),
		LateNight.Schema(),
		LateNightIndian.Schema(),
	}
}

// SchemaFor looks up a table by name.
func SchemaFor(name string) (Schema, bool) {
	for _, s := range Schemas() {
		if s.Name == name {
			return s, true
		}
	}
	return Schema{}, false
}
