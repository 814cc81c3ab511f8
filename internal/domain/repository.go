package domain

import "context"

// FeedSource defines the interface for fetching and parsing remote product feeds
type FeedSource interface {
	Fetch(ctx context.Context, def FeedDefinition) ([]RawRow, error)
}

// Enricher defines the interface for the text-generation enrichment API.
// Each operation is independently callable and independently failable.
type Enricher interface {
	// RewriteDescription returns a rewritten product description, or ""
	// when both inputs are blank. Falling back to the raw feed text on
	// failure is the caller's policy, not the client's.
	RewriteDescription(ctx context.Context, title, description string) (string, error)

	// BestCategory picks one of the exact candidate strings, or ErrNoMatch.
	BestCategory(ctx context.Context, title, description, hint string, candidates []string) (string, error)

	// BestDeliveryTime picks one of the exact candidate strings, or ErrNoMatch.
	BestDeliveryTime(ctx context.Context, text string, candidates []string) (string, error)
}

// Catalog defines the interface for the commerce platform's admin API
type Catalog interface {
	Authenticate(ctx context.Context) error
	LoadCategoryIndex(ctx context.Context) (CategoryIndex, error)
	LoadDeliveryTimeIndex(ctx context.Context) (DeliveryTimeIndex, error)
	FindOrCreateManufacturer(ctx context.Context, name string) (string, error)
	FindProductByNumber(ctx context.Context, productNumber string) (*ExistingProduct, error)
	CreateProduct(ctx context.Context, payload *ProductPayload) error
	UpdateProduct(ctx context.Context, id string, patch *ProductUpdate) error
	FindOrCreateMedia(ctx context.Context, imageURL string) (string, error)
}
