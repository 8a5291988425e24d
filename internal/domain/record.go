package domain

import "time"

// ViewRecord is a derived-view row as published to downstream consumers.
type ViewRecord struct {
	View          string    `json:"view"`
	RunID         string    `json:"run_id"`
	SourceID      string    `json:"source_id"`
	Name          string    `json:"name"`
	Rating        *float64  `json:"rating"`
	ReviewCount   *int      `json:"review_count"`
	Price         string    `json:"price,omitempty"`
	DistanceMiles *float64  `json:"distance_to_ucf_miles"`
	FullAddress   string    `json:"full_address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	ZipCode       string    `json:"zip_code,omitempty"`
	URL           string    `json:"url,omitempty"`
	PublishedAt   time.Time `json:"published_at"`
}

// NewViewRecords projects the rows of a derived view for publishing. All
// records of one call share the same timestamp.
func NewViewRecords(view, runID string, rows []Restaurant) []ViewRecord {
	now := clock.Now().UTC()
	out := make([]ViewRecord, len(rows))
	for i, r := range rows {
		out[i] = ViewRecord{
			View:          view,
			RunID:         runID,
			SourceID:      r.SourceID,
			Name:          r.Name,
			Rating:        r.Rating,
			ReviewCount:   r.ReviewCount,
			Price:         r.Price,
			DistanceMiles: r.DistanceMiles,
			FullAddress:   r.FullAddress,
			City:          r.City,
			State:         r.State,
			ZipCode:       r.ZipCode,
			URL:           r.URL,
			PublishedAt:   now,
		}
	}
	return out
}
