package drugs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultOpenFDAURL is the openFDA drug label endpoint.
const DefaultOpenFDAURL = "https://api.fda.gov/drug/label.json"

// Searcher finds label summaries by brand or substance name.
type Searcher interface {
	Search(ctx context.Context, name string, limit int) ([]Record, error)
}

// OpenFDAClient queries the openFDA drug label API.
type OpenFDAClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// OpenFDAConfig holds parameters for NewOpenFDAClient.
type OpenFDAConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewOpenFDAClient creates a client. Empty fields take defaults.
func NewOpenFDAClient(cfg OpenFDAConfig) *OpenFDAClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenFDAURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenFDAClient{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type labelResponse struct {
	Results []labelResult `json:"results"`
}

type labelResult struct {
	OpenFDA          map[string][]string `json:"openfda"`
	Purpose          []string            `json:"purpose"`
	Indications      []string            `json:"indications_and_usage"`
	Warnings         []string            `json:"warnings"`
	AdverseReactions []string            `json:"adverse_reactions"`
	BoxedWarning     []string            `json:"boxed_warning"`
}

// Search matches name against brand_name OR substance_name. A 404 from
// openFDA means no matches and yields an empty slice.
func (c *OpenFDAClient) Search(ctx context.Context, name string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 5
	}
	// openFDA reads '+' as OR, so spaces inside the term go out as %20 and the
	// query is assembled raw.
	term := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	query := "search=openfda.brand_name:" + term + "+openfda.substance_name:" + term +
		"&limit=" + strconv.Itoa(limit)
	if c.apiKey != "" {
		query += "&api_key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query, nil)
	if err != nil {
		return nil, fmt.Errorf("drugs: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drugs: openFDA request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []Record{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("drugs: openFDA returned %d: %s", resp.StatusCode, body)
	}

	var decoded labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("drugs: decode openFDA response: %w", err)
	}

	out := make([]Record, 0, len(decoded.Results))
	for _, r := range decoded.Results {
		out = append(out, r.record())
	}
	return out, nil
}

func (r labelResult) record() Record {
	return Record{
		BrandName:        first(r.OpenFDA["brand_name"], Unknown),
		SubstanceName:    first(r.OpenFDA["substance_name"], Unknown),
		Manufacturer:     first(r.OpenFDA["manufacturer_name"], Unknown),
		Route:            first(r.OpenFDA["route"], Unknown),
		Purpose:          first(r.Purpose, NotSpecified),
		Usage:            first(r.Indications, NotSpecified),
		Warnings:         first(r.Warnings, NotSpecified),
		AdverseReactions: first(r.AdverseReactions, NotSpecified),
		BoxedWarning:     first(r.BoxedWarning, None),
	}
}

func first(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
