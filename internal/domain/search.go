package domain

// PriceFilter is the price constraint the NLP service read from the query.
type PriceFilter struct {
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Tendency *string  `json:"tendency,omitempty"`
}

// Interpretation is informational query metadata. Not used for filtering here.
type Interpretation struct {
	Subject     *string      `json:"subject,omitempty"`
	Category    *string      `json:"category,omitempty"`
	Attributes  []string     `json:"attributes"`
	PriceFilter *PriceFilter `json:"price_filter,omitempty"`
}

// CorrectionChange is a single spelling fix.
type CorrectionChange struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Confidence float64 `json:"confidence"`
}

// Correction describes the spelling correction applied to a query.
type Correction struct {
	Applied        bool               `json:"applied"`
	CorrectedQuery *string            `json:"corrected_query,omitempty"`
	Changes        []CorrectionChange `json:"changes"`
}

// SearchMatch is a ranked catalog item annotated with the reasons it matched.
type SearchMatch struct {
	RankedCatalogItem
	Reasons []string `json:"reasons,omitempty"`
}

// SearchResult is the outcome of one interpreted query.
type SearchResult struct {
	Query            string         `json:"query"`
	Interpretation   Interpretation `json:"interpretation"`
	Correction       Correction     `json:"correction"`
	Matches          []SearchMatch  `json:"matches"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
}
