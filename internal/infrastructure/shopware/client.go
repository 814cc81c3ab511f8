package shopware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/feedsync/syncer/internal/domain"
	"github.com/feedsync/syncer/internal/infrastructure/cache"
)

// tokenExpiryBuffer renews the token slightly before it actually expires
const tokenExpiryBuffer = 30 * time.Second

// Config holds connection settings for the admin API
type Config struct {
	APIURL              string
	ClientID            string
	ClientSecret        string
	SalesChannel        string
	DefaultManufacturer string
	Timeout             time.Duration
}

// Client handles communication with the Shopware admin API. It owns the
// run-scoped manufacturer and media caches; both are only correct under
// the job's sequential execution model.
type Client struct {
	httpClient          *http.Client
	baseURL             string
	clientID            string
	clientSecret        string
	salesChannelName    string
	defaultManufacturer string

	token          string
	tokenExpiresAt time.Time
	salesChannelID string
	taxID          string

	manufacturers *cache.NameStore
	media         *cache.NameStore

	// sleep is swappable so tests can observe upload backoff without waiting
	sleep func(time.Duration)
}

// NewClient creates a new Shopware admin API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:             cfg.APIURL,
		clientID:            cfg.ClientID,
		clientSecret:        cfg.ClientSecret,
		salesChannelName:    cfg.SalesChannel,
		defaultManufacturer: cfg.DefaultManufacturer,
		manufacturers:       cache.NewNameStore(),
		media:               cache.NewNameStore(),
		sleep:               time.Sleep,
	}
}

// Authenticate obtains a bearer token and resolves the run-scoped
// sales-channel id and default tax id. Sales-channel and tax resolution
// fail soft with a logged warning.
func (c *Client) Authenticate(ctx context.Context) error {
	if err := c.fetchToken(ctx); err != nil {
		return err
	}
	c.resolveSalesChannel(ctx)
	c.resolveDefaultTax(ctx)
	return nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) fetchToken(ctx context.Context) error {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/oauth/token", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request failed: status %d: %s", resp.StatusCode, body)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return fmt.Errorf("token missing in authentication response")
	}

	expiresIn := token.ExpiresIn
	if expiresIn == 0 {
		expiresIn = 3600
	}

	c.token = token.AccessToken
	c.tokenExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)

	log.Printf("[Shopware] Authenticated, token expires in %ds", expiresIn)
	return nil
}

// ensureToken re-authenticates transparently when the token is absent
// or within the expiry buffer
func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Now().Before(c.tokenExpiresAt.Add(-tokenExpiryBuffer)) {
		return nil
	}
	return c.fetchToken(ctx)
}

// doRequest executes an authenticated admin API call and returns the
// response body and status code. Transport failures are errors; HTTP
// error statuses are the caller's to interpret.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, int, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}

	return data, resp.StatusCode, nil
}

// resolveSalesChannel looks up the configured sales channel by display name
func (c *Client) resolveSalesChannel(ctx context.Context) {
	c.salesChannelID = ""

	query := url.Values{}
	query.Set("filter[name]", c.salesChannelName)
	query.Set("limit", "1")

	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/sales-channel", query, nil)
	if err != nil {
		log.Printf("[Shopware] Sales-channel lookup failed: %v", err)
		return
	}
	if status != http.StatusOK {
		log.Printf("[Shopware] Sales-channel lookup returned status %d", status)
		return
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || len(parsed.Data) == 0 || parsed.Data[0].ID == "" {
		log.Printf("[Shopware] Sales channel '%s' not found", c.salesChannelName)
		return
	}

	c.salesChannelID = parsed.Data[0].ID
	log.Printf("[Shopware] Sales channel '%s' => %s", c.salesChannelName, c.salesChannelID)
}

// resolveDefaultTax picks the tax record with position 1, the standard
// rate on a stock install. Missing it is a warning, not a failure.
func (c *Client) resolveDefaultTax(ctx context.Context) {
	c.taxID = ""

	query := url.Values{}
	query.Set("limit", "50")

	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/tax", query, nil)
	if err != nil {
		log.Printf("[Shopware] Tax lookup failed: %v", err)
		return
	}
	if status != http.StatusOK {
		log.Printf("[Shopware] Tax lookup returned status %d", status)
		return
	}

	var parsed struct {
		Data []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Position int    `json:"position"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		log.Printf("[Shopware] Tax lookup decode failed: %v", err)
		return
	}

	for _, tax := range parsed.Data {
		if tax.Position == 1 {
			c.taxID = tax.ID
			log.Printf("[Shopware] Default tax: %s (name=%s, position=1)", tax.ID, tax.Name)
			return
		}
	}

	log.Printf("[Shopware] Warning: no tax with position=1 found, creating products without tax id")
}
