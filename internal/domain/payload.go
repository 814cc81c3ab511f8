package domain

// ListPrice is the struck-through reference price shown next to a discount
type ListPrice struct {
	Gross  float64 `json:"gross"`
	Net    float64 `json:"net"`
	Linked bool    `json:"linked"`
}

// PriceEntry is one currency's price block on a product
type PriceEntry struct {
	CurrencyID string     `json:"currencyId"`
	Gross      float64    `json:"gross"`
	Net        float64    `json:"net"`
	Linked     bool       `json:"linked"`
	ListPrice  *ListPrice `json:"listPrice,omitempty"`
}

// CategoryRef wraps a category id for the product-category relation
type CategoryRef struct {
	ID string `json:"id"`
}

// Visibility attaches a product to a sales channel
type Visibility struct {
	SalesChannelID string `json:"salesChannelId"`
	Visibility     int    `json:"visibility"`
}

// ProductMedia is one media relation on a product. ID identifies the
// relation itself so the cover can reference it in the same call.
type ProductMedia struct {
	ID       string `json:"id,omitempty"`
	MediaID  string `json:"mediaId"`
	Position int    `json:"position"`
}

// ProductPayload is the outbound record for a product create.
// Assembled per row, never persisted locally.
type ProductPayload struct {
	ID             string            `json:"id,omitempty"`
	Name           string            `json:"name"`
	ProductNumber  string            `json:"productNumber"`
	Stock          int               `json:"stock"`
	Description    string            `json:"description"`
	EAN            string            `json:"ean,omitempty"`
	ManufacturerID string            `json:"manufacturerId,omitempty"`
	TaxID          string            `json:"taxId,omitempty"`
	Price          []PriceEntry      `json:"price"`
	Active         bool              `json:"active"`
	Categories     []CategoryRef     `json:"categories"`
	DeliveryTimeID string            `json:"deliveryTimeId,omitempty"`
	CustomFields   map[string]string `json:"customFields,omitempty"`
	Media          []ProductMedia    `json:"media,omitempty"`
	CoverID        string            `json:"coverId,omitempty"`
	Visibilities   []Visibility      `json:"visibilities,omitempty"`
}

// ProductUpdate is the partial patch applied to an existing product.
// Fields absent here are left untouched server-side.
type ProductUpdate struct {
	ID           string            `json:"id"`
	Price        []PriceEntry      `json:"price"`
	CustomFields map[string]string `json:"customFields,omitempty"`
}
