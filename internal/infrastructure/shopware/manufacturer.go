package shopware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/feedsync/syncer/internal/domain"
	"github.com/feedsync/syncer/internal/infrastructure/cache"
)

// FindOrCreateManufacturer resolves a manufacturer name to an id,
// creating the record when it does not exist yet. A blank name falls
// back to the configured default. The run-scoped cache guarantees at
// most one remote create per distinct name.
func (c *Client) FindOrCreateManufacturer(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.defaultManufacturer
	}
	if name == "" {
		return "", fmt.Errorf("manufacturer name is empty and no default is configured")
	}

	key := cache.Key(name)
	if id, ok := c.manufacturers.Get(key); ok {
		return id, nil
	}

	id, err := c.searchFirstID(ctx, "/api/search/product-manufacturer", "product_manufacturer.name", name)
	if err != nil {
		return "", err
	}
	if id != "" {
		c.manufacturers.Set(key, id)
		return id, nil
	}

	newID := domain.NewID()
	body, status, err := c.doRequest(ctx, http.MethodPost, "/api/product-manufacturer", nil, map[string]string{
		"id":   newID,
		"name": name,
	})
	if err != nil {
		return "", err
	}
	if status != http.StatusNoContent {
		return "", fmt.Errorf("%w: manufacturer create returned status %d: %s", domain.ErrAPIFailure, status, body)
	}

	log.Printf("[Shopware] Created manufacturer '%s' => %s", name, newID)
	c.manufacturers.Set(key, newID)
	return newID, nil
}
