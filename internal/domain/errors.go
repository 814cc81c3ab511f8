package domain

import "errors"

var (
	// ErrProductNotFound is returned when no product matches the business key
	ErrProductNotFound = errors.New("product not found")

	// ErrNoMatch is returned when the enrichment API declines to pick a
	// candidate, distinct from an upstream failure
	ErrNoMatch = errors.New("no matching candidate")

	// ErrRateLimited is returned after rate-limit retries are exhausted
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAuthFailed is returned when platform authentication fails; fatal for the run
	ErrAuthFailed = errors.New("authentication failed")

	// ErrEmptyFeed is returned when a feed has no data rows
	ErrEmptyFeed = errors.New("feed is empty")

	// ErrMediaUpload is returned when an image upload fails after all attempts
	ErrMediaUpload = errors.New("media upload failed")

	// ErrAPIFailure is returned for non-rate-limit upstream API errors
	ErrAPIFailure = errors.New("upstream API request failed")
)
