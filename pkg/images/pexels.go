package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const pexelsBaseURL = "https://api.pexels.com"

// StockGenerator finds a stock photo on Pexels.
type StockGenerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewStockGenerator creates a Pexels search client. An empty baseURL uses
// the public API.
func NewStockGenerator(apiKey, baseURL string, timeout time.Duration) *StockGenerator {
	if baseURL == "" {
		baseURL = pexelsBaseURL
	}
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &StockGenerator{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Generator.
func (g *StockGenerator) Name() string { return "pexels" }

type pexelsResponse struct {
	Photos []struct {
		Alt string `json:"alt"`
		Src struct {
			Large    string `json:"large"`
			Large2x  string `json:"large2x"`
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// Generate implements Generator. It searches with the request query, or the
// prompt when no query is set.
func (g *StockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("pexels api key not configured")
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = req.Prompt
	}
	if r := []rune(query); len(r) > 100 {
		query = string(r[:100])
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/search?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("pexels request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pexels returned status %d", resp.StatusCode)
	}

	var body pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode pexels response: %w", err)
	}
	if len(body.Photos) == 0 {
		return "", ErrEmptyResult
	}
	src := body.Photos[0].Src
	for _, u := range []string{src.Large, src.Large2x, src.Original} {
		if u != "" {
			return u, nil
		}
	}
	return "", ErrEmptyResult
}
