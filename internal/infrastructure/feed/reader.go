package feed

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/feedsync/syncer/internal/domain"
)

// mustHaveColumns is the fixed superset of feed columns downstream code
// relies on. Every row is seeded with these keys so a feed missing a
// column still yields empty strings, never an absent key.
var mustHaveColumns = []string{
	"Produkt-Deeplink",
	"Produkt-Titel",
	"Produktbeschreibung",
	"Produktbeschreibung lang",
	"Preis (Brutto)",
	"Streichpreis",
	"europäische Artikelnummer EAN",
	"Anbieter Artikelnummer AAN",
	"Hersteller",
	"Produktbild-URL",
	"Vorschaubild-URL",
	"Produktkategorie",
	"Versandkosten Allgemein",
	"Lieferzeit",
}

// Reader downloads and parses semicolon-delimited product feeds
type Reader struct {
	httpClient *http.Client
	userAgent  string
}

// NewReader creates a feed reader with the given request timeout
func NewReader(timeout time.Duration, userAgent string) *Reader {
	return &Reader{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
	}
}

// Fetch downloads a feed, decompresses it if needed, and parses it into
// rows keyed by header name. Short rows are padded with empty strings
// and extra trailing columns are dropped; a column-count mismatch is
// never fatal. The network fetch is not retried.
func (r *Reader) Fetch(ctx context.Context, def domain.FeedDefinition) ([]domain.RawRow, error) {
	log.Printf("[Feed] Fetching feed '%s' from %s", def.ID, def.URL)

	body, err := r.download(ctx, def.URL)
	if err != nil {
		return nil, fmt.Errorf("feed '%s': %w", def.ID, err)
	}

	records, err := parseCSV(body)
	if err != nil {
		return nil, fmt.Errorf("feed '%s': %w", def.ID, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("feed '%s': %w", def.ID, domain.ErrEmptyFeed)
	}

	headers := records[0]
	for i, h := range headers {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.RawRow, 0, len(records)-1)
	for _, cols := range records[1:] {
		row := make(domain.RawRow, len(headers)+len(mustHaveColumns))
		for _, name := range mustHaveColumns {
			row[name] = ""
		}
		for i, name := range headers {
			if name == "" {
				continue
			}
			if i < len(cols) {
				row[name] = cols[i]
			}
		}
		applyMapping(row, def.Mapping)
		rows = append(rows, row)
	}

	log.Printf("[Feed] Parsed %d rows from feed '%s'", len(rows), def.ID)
	return rows, nil
}

// download fetches the raw feed bytes, transparently gunzipping when the
// content carries the gzip magic bytes or the URL path ends in .gz
func (r *Reader) download(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	if isGzip(raw) || hasGzSuffix(feedURL) {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip decompression failed: %w", err)
		}
		defer gz.Close()

		raw, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("gzip decompression failed: %w", err)
		}
	}

	return raw, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B
}

func hasGzSuffix(feedURL string) bool {
	u, err := url.Parse(feedURL)
	if err != nil {
		return strings.HasSuffix(feedURL, ".gz")
	}
	return strings.HasSuffix(u.Path, ".gz")
}

// parseCSV parses semicolon-delimited, quoted-field-aware content
func parseCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSV parse failed: %w", err)
	}
	return records, nil
}

// applyMapping copies source column values into empty target columns
func applyMapping(row domain.RawRow, rules []domain.MappingRule) {
	for _, rule := range rules {
		if row[rule.Source] != "" && row[rule.Target] == "" {
			row[rule.Target] = row[rule.Source]
		}
	}
}
