// Package domain models Yelp Fusion business data and the staging tables
// derived from it.
//
// # Data Source
//
// Listings come from the Yelp Fusion v3 business search endpoint
// (GET /v3/businesses/search), paginated 50 at a time around a fixed
// reference point. Opening hours are only available from the per-business
// detail endpoint (GET /v3/businesses/{id}). Both responses are stored on
// disk verbatim and read back by the staging stages.
//
// # Yelp Data Conventions
//
// Coordinates:
//
//	{"latitude": 28.59, "longitude": -81.21}
//	Either value may be null. Non-numeric values are treated as absent.
//
// Display address:
//
//	["4250 Alafaya Trl", "Ste 100", "Oviedo, FL 32765"]
//	Lines are joined with ", " after dropping empty lines.
//
// Opening hours:
//
//	"hours": [{"open": [{"day": 0, "start": "1100", "end": "2200"}], "hours_type": "REGULAR"}]
//	day is 0 (Monday) through 6 (Sunday). start/end are 24-hour HHMM tokens.
//	Only the first hours group is used; later groups hold special hours.
//
// # Time Tokens
//
// A valid token is exactly four ASCII digits. It is rendered as "HH : MM"
// and all classification compares these rendered strings, not clock values:
//
//	overnight  = end < start
//	late-night = overnight || end >= "23:00"
//
// Because ' ' sorts before ':', an end time of "23 : 30" is not late-night
// under this rule. The comparison is kept as-is so staging output matches
// earlier runs; see [ClassifyPeriod].
//
// # Cuisine Classification
//
// Category aliases map to canonical cuisine labels through a static lookup
// ([DefaultCuisineMapping]). Aliases without a mapping contribute nothing.
package domain
