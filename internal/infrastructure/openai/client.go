package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/feedsync/syncer/internal/domain"
)

const (
	maxAttempts        = 4 // 1 initial try + 3 retries on 429
	maxTokensRewrite   = 400
	maxTokensSelection = 50
)

// rateLimitBackoff holds the wait before retry n after a 429
var rateLimitBackoff = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
}

// Client handles communication with the OpenAI chat-completion API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	rateLimiter *rate.Limiter

	// sleep is swappable so tests can observe backoff without waiting
	sleep func(time.Duration)
}

// NewClient creates a new OpenAI API client
func NewClient(apiKey, model, baseURL string) *Client {
	// Keep a modest client-side pace on top of the 429 retry handling;
	// the upstream limit is shared across all rows of the run
	limiter := rate.NewLimiter(rate.Limit(2), 4)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		apiKey:      apiKey,
		model:       model,
		baseURL:     baseURL,
		rateLimiter: limiter,
		sleep:       time.Sleep,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// RewriteDescription rewrites a product description from the feed's raw
// title and description. Returns "" without an upstream call when both
// inputs are blank. Upstream failure is the caller's to handle; no
// silent fallback to the input text happens here.
func (c *Client) RewriteDescription(ctx context.Context, title, description string) (string, error) {
	if strings.TrimSpace(title) == "" && strings.TrimSpace(description) == "" {
		return "", nil
	}

	prompt := "Bitte schreibe eine deutsche Produktbeschreibung, " +
		"ohne den Produkt-Titel zu wiederholen. " +
		"Nutze nur diese vorhandenen Texte:\n\n" +
		"Beschreibung:\n" + description + "\n\n" +
		"Produktname:\n" + title + "\n\n" +
		"Schreibe Sie Conversion-stark, ansprechend und positiv in deutscher Sprache."

	return c.complete(ctx, prompt, maxTokensRewrite)
}

// BestCategory picks the best-fitting category path out of candidates.
// The result is always one of the exact candidate strings; anything
// else from upstream counts as no match.
func (c *Client) BestCategory(ctx context.Context, title, description, hint string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoMatch
	}

	prompt := fmt.Sprintf(
		"We have a product with:\n- Title: %s\n- Description: %s\n- Feed-suggested category: %s\n\n"+
			"We have the following existing categories:\n- %s\n\n"+
			"Which ONE category best fits this product? Reply with the exact name from the list above.",
		title, description, hint, strings.Join(candidates, "\n- "))

	answer, err := c.complete(ctx, prompt, maxTokensSelection)
	if err != nil {
		return "", err
	}
	return matchCandidate(answer, candidates)
}

// BestDeliveryTime picks the best-fitting delivery-time name out of
// candidates, with the same contract shape as BestCategory.
func (c *Client) BestDeliveryTime(ctx context.Context, text string, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", domain.ErrNoMatch
	}

	prompt := fmt.Sprintf(
		"We have a product with feed delivery time: '%s'.\n"+
			"We have the following existing delivery times:\n- %s\n\n"+
			"Which one best matches the feed-provided delivery time? Reply with the exact name.",
		text, strings.Join(candidates, "\n- "))

	answer, err := c.complete(ctx, prompt, maxTokensSelection)
	if err != nil {
		return "", err
	}
	return matchCandidate(answer, candidates)
}

// matchCandidate enforces that the model answered with one of the exact
// candidate strings
func matchCandidate(answer string, candidates []string) (string, error) {
	answer = strings.TrimSpace(answer)
	for _, candidate := range candidates {
		if answer == candidate {
			return candidate, nil
		}
	}
	return "", domain.ErrNoMatch
}

// complete sends one user prompt and returns the generated text.
// 429 responses are retried with increasing waits; any other upstream
// error fails immediately.
func (c *Client) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter error: %w", err)
		}

		text, status, err := c.doRequest(ctx, payload)
		if err != nil {
			return "", err
		}
		if status == http.StatusOK {
			return text, nil
		}
		if status != http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: status %d", domain.ErrAPIFailure, status)
		}

		if attempt < maxAttempts {
			wait := rateLimitBackoff[attempt-1]
			log.Printf("[OpenAI] Rate limited (attempt %d/%d), waiting %s", attempt, maxAttempts, wait)
			c.sleep(wait)
		}
	}

	return "", domain.ErrRateLimited
}

// doRequest executes one chat-completion call. The status code is
// returned separately so the caller can tell 429 apart.
func (c *Client) doRequest(ctx context.Context, payload []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domain.ErrAPIFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, nil
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", 0, fmt.Errorf("%w: empty completion", domain.ErrAPIFailure)
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), resp.StatusCode, nil
}
