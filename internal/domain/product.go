package domain

// MappingRule copies the value of a source column into a target column
// when the target is empty. It is a fallback, never an overwrite.
type MappingRule struct {
	Source string
	Target string
}

// FeedDefinition describes one configured remote CSV source.
// Read once from configuration at process start; immutable for the run.
type FeedDefinition struct {
	URL                 string
	ID                  string
	Mapping             []MappingRule
	DefaultManufacturer string
}

// RawRow is one parsed feed line, keyed by header name.
type RawRow map[string]string

// ProductIntent is the canonical normalized record produced from a feed row.
// Price fields are kept as raw comma-decimal strings; numeric conversion
// happens at payload assembly time.
type ProductIntent struct {
	Deeplink         string
	Title            string
	Description      string
	PriceGross       string
	ListPrice        string
	EAN              string
	AAN              string
	Manufacturer     string
	ImageURL         string
	CategoryHint     string
	ShippingText     string
	DeliveryTimeText string
	ProductNumber    string
}

// HasBusinessKey reports whether the row can be matched against remote
// state at all. Rows without EAN and AAN are unprocessable.
func (p ProductIntent) HasBusinessKey() bool {
	return p.EAN != "" || p.AAN != ""
}

// ExistingProduct is the remote lookup result for a business key.
// Fetched fresh per row, never mutated locally.
type ExistingProduct struct {
	ID            string `json:"id"`
	ProductNumber string `json:"productNumber"`
}

// CategoryIndex maps full category paths ("Parent > Child") to category ids.
type CategoryIndex map[string]string

// DeliveryTimeIndex maps delivery-time display names to ids.
type DeliveryTimeIndex map[string]string
