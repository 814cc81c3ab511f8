package shopware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedsync/syncer/internal/domain"
)

// newTestClient wires a client against a fake admin API with sleeps
// recorded instead of slept
func newTestClient(t *testing.T, handler http.Handler) (*Client, *[]time.Duration) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		APIURL:              server.URL,
		ClientID:            "client-id",
		ClientSecret:        "client-secret",
		SalesChannel:        "Storefront",
		DefaultManufacturer: "Default Hersteller",
	})

	var sleeps []time.Duration
	client.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}
	return client, &sleeps
}

func writeToken(w http.ResponseWriter, expiresIn int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token": "test-token",
		"expires_in":   expiresIn,
	})
}

func writeList(w http.ResponseWriter, items interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"data": items})
}

func TestAuthenticate(t *testing.T) {
	tokenRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "client_credentials", body["grant_type"])
		assert.Equal(t, "client-id", body["client_id"])

		writeToken(w, 600)
	})
	mux.HandleFunc("/api/sales-channel", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Storefront", r.URL.Query().Get("filter[name]"))
		writeList(w, []map[string]string{{"id": "sc-1"}})
	})
	mux.HandleFunc("/api/tax", func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]interface{}{
			{"id": "tax-reduced", "name": "7%", "position": 2},
			{"id": "tax-standard", "name": "19%", "position": 1},
		})
	})

	client, _ := newTestClient(t, mux)
	require.NoError(t, client.Authenticate(context.Background()))

	assert.Equal(t, 1, tokenRequests)
	assert.Equal(t, "test-token", client.token)
	assert.Equal(t, "sc-1", client.salesChannelID)
	assert.Equal(t, "tax-standard", client.taxID)
}

func TestAuthenticate_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, _ := newTestClient(t, mux)
	assert.Error(t, client.Authenticate(context.Background()))
}

func TestAuthenticate_NoDefaultTax(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/sales-channel", func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]string{})
	})
	mux.HandleFunc("/api/tax", func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]interface{}{
			{"id": "tax-reduced", "name": "7%", "position": 2},
		})
	})

	client, _ := newTestClient(t, mux)
	require.NoError(t, client.Authenticate(context.Background()))

	// Soft failures: run proceeds without sales channel and tax id
	assert.Equal(t, "", client.salesChannelID)
	assert.Equal(t, "", client.taxID)
}

func TestEnsureToken_ReauthenticatesAfterExpiry(t *testing.T) {
	tokenRequests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/product", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		writeList(w, []map[string]string{})
	})

	client, _ := newTestClient(t, mux)

	_, err := client.FindProductByNumber(context.Background(), "F1-123")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
	assert.Equal(t, 1, tokenRequests)

	// Within the expiry buffer the next call must re-authenticate
	client.tokenExpiresAt = time.Now().Add(10 * time.Second)

	_, err = client.FindProductByNumber(context.Background(), "F1-123")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
	assert.Equal(t, 2, tokenRequests)
}

func TestFindOrCreateManufacturer_CreatesOnce(t *testing.T) {
	searches := 0
	creates := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/search/product-manufacturer", func(w http.ResponseWriter, r *http.Request) {
		searches++
		writeList(w, []map[string]string{})
	})
	mux.HandleFunc("/api/product-manufacturer", func(w http.ResponseWriter, r *http.Request) {
		creates++
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)

	first, err := client.FindOrCreateManufacturer(context.Background(), "Acme")
	require.NoError(t, err)
	require.Len(t, first, 32)

	// Different case and trailing space resolve to the same cached id
	second, err := client.FindOrCreateManufacturer(context.Background(), "ACME ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, searches)
	assert.Equal(t, 1, creates)
}

func TestFindOrCreateManufacturer_FindsExisting(t *testing.T) {
	creates := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/search/product-manufacturer", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Acme")
		writeList(w, []map[string]string{{"id": "m-1"}})
	})
	mux.HandleFunc("/api/product-manufacturer", func(w http.ResponseWriter, r *http.Request) {
		creates++
	})

	client, _ := newTestClient(t, mux)

	id, err := client.FindOrCreateManufacturer(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
	assert.Equal(t, 0, creates)
}

func TestFindOrCreateManufacturer_BlankNameUsesDefault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/search/product-manufacturer", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "Default Hersteller")
		writeList(w, []map[string]string{{"id": "m-default"}})
	})

	client, _ := newTestClient(t, mux)

	id, err := client.FindOrCreateManufacturer(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "m-default", id)
}

func TestFindProductByNumber(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/product", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("filter[productNumber]") == "F1-123" {
			writeList(w, []map[string]string{{"id": "p-1", "productNumber": "F1-123"}})
			return
		}
		writeList(w, []map[string]string{})
	})

	client, _ := newTestClient(t, mux)

	existing, err := client.FindProductByNumber(context.Background(), "F1-123")
	require.NoError(t, err)
	assert.Equal(t, "p-1", existing.ID)

	_, err = client.FindProductByNumber(context.Background(), "F1-999")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestCreateProduct_FillsDefaults(t *testing.T) {
	var received map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/product", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)
	client.taxID = "tax-standard"
	client.salesChannelID = "sc-1"

	payload := &domain.ProductPayload{
		Name:          "Widget",
		ProductNumber: "F1-123",
		Stock:         9999,
		Price: []domain.PriceEntry{
			{CurrencyID: "cur-1", Gross: 9.99, Net: 8.39},
		},
		Active: true,
	}
	require.NoError(t, client.CreateProduct(context.Background(), payload))

	id, _ := received["id"].(string)
	assert.Len(t, id, 32)
	assert.Equal(t, "tax-standard", received["taxId"])

	categories, ok := received["categories"].([]interface{})
	assert.True(t, ok, "categories must be present as an array")
	assert.Empty(t, categories)

	visibilities, ok := received["visibilities"].([]interface{})
	require.True(t, ok)
	require.Len(t, visibilities, 1)
	visibility := visibilities[0].(map[string]interface{})
	assert.Equal(t, "sc-1", visibility["salesChannelId"])
	assert.Equal(t, float64(30), visibility["visibility"])
}

func TestCreateProduct_Failure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/product", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	client, _ := newTestClient(t, mux)
	err := client.CreateProduct(context.Background(), &domain.ProductPayload{Name: "Widget"})
	assert.True(t, errors.Is(err, domain.ErrAPIFailure))
}

func TestUpdateProduct(t *testing.T) {
	var received map[string]interface{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/product/p-1", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})

	client, _ := newTestClient(t, mux)

	patch := &domain.ProductUpdate{
		ID:    "p-1",
		Price: []domain.PriceEntry{{CurrencyID: "cur-1", Gross: 9.99, Net: 8.39}},
		CustomFields: map[string]string{
			"real_productlink": "https://example.com/widget",
		},
	}
	require.NoError(t, client.UpdateProduct(context.Background(), "p-1", patch))

	assert.Equal(t, "p-1", received["id"])
	// Partial patch: untouched fields are never sent
	assert.NotContains(t, received, "description")
	assert.NotContains(t, received, "deliveryTimeId")
}
