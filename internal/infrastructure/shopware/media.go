package shopware

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/feedsync/syncer/internal/domain"
)

const maxUploadAttempts = 3

// mediaUploadBackoff holds the wait before upload attempt n+1
var mediaUploadBackoff = []time.Duration{
	10 * time.Second,
	30 * time.Second,
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w.\-]+`)

// mediaFilename derives the stable dedup filename from an image URL:
// path basename, extension stripped, URL-decoded, sanitized to a safe
// character set
func mediaFilename(imageURL string) string {
	name := imageURL
	if u, err := url.Parse(imageURL); err == nil {
		name = u.Path
	}
	name = path.Base(name)
	name = strings.TrimSuffix(name, path.Ext(name))
	if decoded, err := url.QueryUnescape(name); err == nil {
		name = decoded
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// FindOrCreateMedia resolves an image URL to a media id, deduplicating
// by derived filename. A missing media record is created empty and then
// filled by letting the platform download the image from the source
// URL; the upload is retried before the image is abandoned.
func (c *Client) FindOrCreateMedia(ctx context.Context, imageURL string) (string, error) {
	filename := mediaFilename(imageURL)
	if filename == "" {
		return "", fmt.Errorf("%w: no usable filename in %q", domain.ErrMediaUpload, imageURL)
	}

	if id, ok := c.media.Get(filename); ok {
		return id, nil
	}

	if id, err := c.findMediaByFilename(ctx, filename); err == nil && id != "" {
		log.Printf("[Shopware] Media already exists: %s => %s", filename, id)
		c.media.Set(filename, id)
		return id, nil
	}

	mediaID := domain.NewID()
	body, status, err := c.doRequest(ctx, http.MethodPost, "/api/media", nil, map[string]string{"id": mediaID})
	if err != nil {
		return "", err
	}
	if status != http.StatusNoContent {
		return "", fmt.Errorf("%w: media create returned status %d: %s", domain.ErrAPIFailure, status, body)
	}

	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		if err := c.uploadFromURL(ctx, mediaID, imageURL, filename); err == nil {
			log.Printf("[Shopware] Uploaded image %s => %s", imageURL, mediaID)
			c.media.Set(filename, mediaID)
			return mediaID, nil
		} else if attempt < maxUploadAttempts {
			wait := mediaUploadBackoff[attempt-1]
			log.Printf("[Shopware] Upload attempt %d for %s failed: %v. Waiting %s.", attempt, imageURL, err, wait)
			c.sleep(wait)
		}
	}

	return "", fmt.Errorf("%w: giving up on %s after %d attempts", domain.ErrMediaUpload, imageURL, maxUploadAttempts)
}

// findMediaByFilename searches for an existing media record by its
// extension-less filename
func (c *Client) findMediaByFilename(ctx context.Context, filename string) (string, error) {
	query := url.Values{}
	query.Set("filter[fileName]", filename)
	query.Set("limit", "1")

	data, status, err := c.doRequest(ctx, http.MethodGet, "/api/media", query, nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%w: media lookup returned status %d", domain.ErrAPIFailure, status)
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode media lookup: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", nil
	}
	return parsed.Data[0].ID, nil
}

// uploadFromURL asks the platform to pull the image bytes from the
// source URL into the media record
func (c *Client) uploadFromURL(ctx context.Context, mediaID, imageURL, filename string) error {
	uploadPath := fmt.Sprintf("/api/_action/media/%s/upload", mediaID)

	query := url.Values{}
	query.Set("fileName", filename)

	body, status, err := c.doRequest(ctx, http.MethodPost, uploadPath, query, map[string]string{"url": imageURL})
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return fmt.Errorf("%w: media upload returned status %d: %s", domain.ErrAPIFailure, status, body)
	}
	return nil
}
