package models

// MediaItem is one uploaded evidence item, base64-encoded.
type MediaItem struct {
	Kind     MediaKind `json:"kind"`
	MimeType string    `json:"mime_type"`
	Data     string    `json:"data"`
}

// SubmitArgs is the request body for report submission.
type SubmitArgs struct {
	Version       string      `json:"version"` // Must be "2.0".
	ID            string      `json:"id"`      // Submitter id.
	WalletAddress string      `json:"wallet_address,omitempty"`
	Location      string      `json:"location"`
	Latitude      float64     `json:"latitude"`
	Longitude     float64     `json:"longitude"`
	Description   string      `json:"description"`
	Category      CrimeType   `json:"category"`
	Priority      Priority    `json:"priority"`
	Media         []MediaItem `json:"media"`

	// Classification optionally carries an analysis computed before
	// submission; the workflow scores it instead of calling the model.
	Classification *Classification `json:"classification,omitempty"`
}

// SubmitResp is the response to a report submission.
type SubmitResp struct {
	Seq            int     `json:"seq"`
	Status         Status  `json:"status"`
	Disposition    Status  `json:"disposition"`
	RequiresReview bool    `json:"requires_review"`
	Report         *Report `json:"report"`
}

// VerifyArgs is the request body for a human verification decision.
// Decision is a pointer so a missing field can be told apart from false.
type VerifyArgs struct {
	Version    string `json:"version"`
	ReportSeq  int    `json:"report_seq"`
	VerifierID string `json:"verifier_id"`
	Decision   *bool  `json:"decision"`
	Notes      string `json:"notes,omitempty"`
}

// VerifyResp is the response to a verification decision. Message carries the
// soft-failure annotation when the reward payout did not go through.
type VerifyResp struct {
	Report  *Report `json:"report"`
	Reward  *Reward `json:"reward,omitempty"`
	Message string  `json:"message"`
}

// ListArgs filters the report listing.
type ListArgs struct {
	Status   Status    `form:"status"`
	Priority Priority  `form:"priority"`
	Category CrimeType `form:"category"`
	Search   string    `form:"search"`
}

// StatsResp is the dashboard stats payload.
type StatsResp struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
}

// ViewPort is the visible map area for the heat-map query.
type ViewPort struct {
	LatMin float64 `json:"latmin"`
	LonMin float64 `json:"lonmin"`
	LatMax float64 `json:"latmax"`
	LonMax float64 `json:"lonmax"`
}

// Point is a lat/lon pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MapArgs is the request body for the heat-map endpoint.
type MapArgs struct {
	Version  string   `json:"version"`
	ViewPort ViewPort `json:"vport"`
	Center   Point    `json:"center"`
	Status   Status   `json:"status,omitempty"`
}

// MapResult is one aggregated heat-map cell.
type MapResult struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Count     int64   `json:"count"`
}
