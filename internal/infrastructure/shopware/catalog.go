package shopware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/feedsync/syncer/internal/domain"
)

const (
	pageLimit = 100
	// Hard cap against a misbehaving API paging forever
	maxPages = 20
)

// listItem is the shared shape of category and delivery-time records
type listItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// listPages walks a paginated list endpoint, collecting items in API
// order until a short page, an empty page, the page cap, or an error.
// Page errors stop paging but keep what already loaded.
func (c *Client) listPages(ctx context.Context, path string) []listItem {
	var items []listItem

	for page := 1; page <= maxPages; page++ {
		query := url.Values{}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(pageLimit))

		data, status, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
		if err != nil {
			log.Printf("[Shopware] Listing %s page %d failed: %v", path, page, err)
			break
		}
		if status != http.StatusOK {
			log.Printf("[Shopware] Listing %s page %d returned status %d", path, page, status)
			break
		}

		var parsed struct {
			Data []listItem `json:"data"`
		}
		if err := json.Unmarshal(data, &parsed); err != nil {
			log.Printf("[Shopware] Listing %s page %d decode failed: %v", path, page, err)
			break
		}
		if len(parsed.Data) == 0 {
			break
		}

		items = append(items, parsed.Data...)

		if len(parsed.Data) < pageLimit {
			break
		}
	}

	return items
}

type categoryNode struct {
	name     string
	parentID string
	children []string
}

// LoadCategoryIndex pages through all categories and flattens the tree
// into "Parent > Child" path strings. Roots are nodes whose parent is
// absent or not in the loaded set; traversal is depth-first with
// siblings in API-returned order.
func (c *Client) LoadCategoryIndex(ctx context.Context) (domain.CategoryIndex, error) {
	items := c.listPages(ctx, "/api/category")

	nodes := make(map[string]*categoryNode, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.ID == "" || item.Name == "" {
			continue
		}
		nodes[item.ID] = &categoryNode{name: item.Name, parentID: item.ParentID}
		order = append(order, item.ID)
	}

	for _, id := range order {
		node := nodes[id]
		if node.parentID == "" {
			continue
		}
		if parent, ok := nodes[node.parentID]; ok {
			parent.children = append(parent.children, id)
		}
	}

	index := make(domain.CategoryIndex, len(nodes))
	var walk func(id, path string)
	walk = func(id, path string) {
		index[path] = id
		for _, childID := range nodes[id].children {
			walk(childID, path+" > "+nodes[childID].name)
		}
	}
	for _, id := range order {
		node := nodes[id]
		if node.parentID == "" || nodes[node.parentID] == nil {
			walk(id, node.name)
		}
	}

	log.Printf("[Shopware] Loaded %d categories into %d paths", len(nodes), len(index))
	return index, nil
}

// LoadDeliveryTimeIndex pages through all delivery times into a flat
// name → id table
func (c *Client) LoadDeliveryTimeIndex(ctx context.Context) (domain.DeliveryTimeIndex, error) {
	items := c.listPages(ctx, "/api/delivery-time")

	index := make(domain.DeliveryTimeIndex, len(items))
	for _, item := range items {
		if item.ID == "" || item.Name == "" {
			continue
		}
		index[item.Name] = item.ID
	}

	log.Printf("[Shopware] Loaded %d delivery times", len(index))
	return index, nil
}

// searchFirstID runs a structured equals-filter search and returns the
// first hit's id, or "" when nothing matches
func (c *Client) searchFirstID(ctx context.Context, path, field, value string) (string, error) {
	body := map[string]interface{}{
		"filter": []map[string]string{
			{"field": field, "type": "equals", "value": value},
		},
		"limit": 1,
	}

	data, status, err := c.doRequest(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: search %s returned status %d", domain.ErrAPIFailure, path, status)
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", nil
	}
	return parsed.Data[0].ID, nil
}
