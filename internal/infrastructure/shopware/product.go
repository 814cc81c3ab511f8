package shopware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/feedsync/syncer/internal/domain"
)

// FindProductByNumber looks a product up by its business key
func (c *Client) FindProductByNumber(ctx context.Context, productNumber string) (*domain.ExistingProduct, error) {
	if productNumber == "" {
		return nil, domain.ErrProductNotFound
	}

	query := url.Values{}
	query.Set("filter[productNumber]", productNumber)
	query.Set("limit", "1")

	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/product", query, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: product lookup returned status %d", domain.ErrAPIFailure, status)
	}

	var parsed struct {
		Data []domain.ExistingProduct `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode product lookup: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, domain.ErrProductNotFound
	}

	return &parsed.Data[0], nil
}

// CreateProduct creates a new product. Fills in an id, the default tax
// id and a non-nil categories array when the caller left them unset,
// and attaches sales-channel visibility when one was resolved.
func (c *Client) CreateProduct(ctx context.Context, payload *domain.ProductPayload) error {
	if payload.ID == "" {
		payload.ID = domain.NewID()
	}
	if payload.TaxID == "" {
		payload.TaxID = c.taxID
	}
	if payload.Categories == nil {
		payload.Categories = []domain.CategoryRef{}
	}
	if c.salesChannelID != "" {
		payload.Visibilities = []domain.Visibility{{
			SalesChannelID: c.salesChannelID,
			Visibility:     30,
		}}
	}

	body, status, err := c.doRequest(ctx, http.MethodPost, "/api/product", nil, payload)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: product create returned status %d: %s", domain.ErrAPIFailure, status, body)
	}
	return nil
}

// UpdateProduct patches an existing product. Fields absent from the
// patch are left untouched server-side.
func (c *Client) UpdateProduct(ctx context.Context, id string, patch *domain.ProductUpdate) error {
	body, status, err := c.doRequest(ctx, http.MethodPatch, "/api/product/"+id, nil, patch)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: product update returned status %d: %s", domain.ErrAPIFailure, status, body)
	}
	return nil
}
