package shopware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedsync/syncer/internal/domain"
)

func TestLoadCategoryIndex_FlattensTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/category", func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]string{
			{"id": "c-root", "name": "Electronics"},
			{"id": "c-tablets", "name": "Tablets", "parentId": "c-root"},
			{"id": "c-phones", "name": "Phones", "parentId": "c-root"},
			{"id": "c-cases", "name": "Cases", "parentId": "c-phones"},
		})
	})

	client, _ := newTestClient(t, mux)

	index, err := client.LoadCategoryIndex(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryIndex{
		"Electronics":                  "c-root",
		"Electronics > Tablets":        "c-tablets",
		"Electronics > Phones":         "c-phones",
		"Electronics > Phones > Cases": "c-cases",
	}, index)
}

func TestLoadCategoryIndex_UnknownParentBecomesRoot(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/category", func(w http.ResponseWriter, r *http.Request) {
		writeList(w, []map[string]string{
			{"id": "c-orphan", "name": "Orphan", "parentId": "c-missing"},
		})
	})

	client, _ := newTestClient(t, mux)

	index, err := client.LoadCategoryIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryIndex{"Orphan": "c-orphan"}, index)
}

func TestLoadDeliveryTimeIndex_Pages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/delivery-time", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		switch page {
		case 1:
			items := make([]map[string]string, 100)
			for i := range items {
				items[i] = map[string]string{
					"id":   fmt.Sprintf("dt-%d", i),
					"name": fmt.Sprintf("%d-%d Tage", i, i+2),
				}
			}
			writeList(w, items)
		case 2:
			writeList(w, []map[string]string{{"id": "dt-last", "name": "1-2 Wochen"}})
		default:
			t.Errorf("unexpected page %d", page)
		}
	})

	client, _ := newTestClient(t, mux)

	index, err := client.LoadDeliveryTimeIndex(context.Background())
	require.NoError(t, err)
	assert.Len(t, index, 101)
	assert.Equal(t, "dt-last", index["1-2 Wochen"])
}

func TestLoadDeliveryTimeIndex_PageErrorKeepsLoadedEntries(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		writeToken(w, 600)
	})
	mux.HandleFunc("/api/delivery-time", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		items := make([]map[string]string, 100)
		for i := range items {
			items[i] = map[string]string{
				"id":   fmt.Sprintf("dt-%d", i),
				"name": fmt.Sprintf("name-%d", i),
			}
		}
		writeList(w, items)
	})

	client, _ := newTestClient(t, mux)

	index, err := client.LoadDeliveryTimeIndex(context.Background())
	require.NoError(t, err)
	assert.Len(t, index, 100)
}
