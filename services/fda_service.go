package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/andrei-assa/fda-gpt/config"
	"github.com/andrei-assa/fda-gpt/logger"
	"github.com/andrei-assa/fda-gpt/metrics"
	"github.com/andrei-assa/fda-gpt/models"
)

// ErrFDARequest wraps every failure talking to openFDA.
var ErrFDARequest = errors.New("fda request failed")

// FDAStatusError is returned for a non-2xx openFDA response.
type FDAStatusError struct {
	Status int
	Body   string
}

func (e *FDAStatusError) Error() string {
	return fmt.Sprintf("HTTP Error: %d", e.Status)
}

// Record is one drug-label result, field name to raw JSON value.
type Record map[string]json.RawMessage

type fdaResponse struct {
	Results []Record `json:"results"`
}

type FDAService struct {
	client       *resty.Client
	baseURL      string
	apiKey       string
	defaultLimit int
	log          *logger.Logger
	metrics      *metrics.Metrics
}

func NewFDAService(cfg config.FDAConfig, log *logger.Logger, m *metrics.Metrics) *FDAService {
	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit = 20
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	return &FDAService{
		client:       client,
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		defaultLimit: limit,
		log:          log.With("service", "FDAService"),
		metrics:      m,
	}
}

// BuildQuery renders the search as an openFDA query string, including the
// leading "?". Optional parameters follow in the fixed order sort, count,
// limit, skip and are omitted when zero.
func BuildQuery(search models.StructuredSearch, apiKey string) string {
	var params []string

	if len(search.Constraints) > 0 {
		pairs := make([]string, 0, len(search.Constraints))
		for _, c := range search.Constraints {
			pairs = append(pairs, encodeURIComponent(string(c.Field))+"%3A"+encodeURIComponent(c.Term))
		}
		params = append(params, "search="+strings.Join(pairs, "+AND+"))
	}
	if search.Sort != "" {
		params = append(params, "sort="+encodeURIComponent(search.Sort))
	}
	if search.Count != "" {
		params = append(params, "count="+encodeURIComponent(search.Count))
	}
	if search.Limit > 0 {
		params = append(params, "limit="+strconv.Itoa(search.Limit))
	}
	if search.Skip > 0 {
		params = append(params, "skip="+strconv.Itoa(search.Skip))
	}
	if apiKey != "" {
		params = append(params, "api_key="+encodeURIComponent(apiKey))
	}

	return "?" + strings.Join(params, "&")
}

// uriComponentReplacer turns url.QueryEscape output into encodeURIComponent
// output: %20 for spaces and !'()* left literal.
var uriComponentReplacer = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// encodeURIComponent escapes s for use inside a query value. Spaces become
// %20 so that "+" stays free for openFDA's boolean operators.
func encodeURIComponent(s string) string {
	return uriComponentReplacer.Replace(url.QueryEscape(s))
}

// SearchDrug issues one GET for the search and returns the raw results.
func (s *FDAService) SearchDrug(ctx context.Context, search models.StructuredSearch) ([]Record, error) {
	query := BuildQuery(search, s.apiKey)
	s.log.Debug("FDA query", "query", BuildQuery(search, ""))

	resp, err := s.client.R().
		SetContext(ctx).
		Get(s.baseURL + query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFDARequest, err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		s.metrics.RecordFDAResponse(resp.StatusCode(), 0)
		return nil, fmt.Errorf("%w: %w", ErrFDARequest, &FDAStatusError{Status: resp.StatusCode(), Body: resp.String()})
	}

	var result fdaResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %w", ErrFDARequest, err)
	}
	s.metrics.RecordFDAResponse(resp.StatusCode(), len(result.Results))

	return result.Results, nil
}

// ExtractFields keeps only fields from each result. Every returned record
// has exactly those keys; absent upstream values are JSON null.
func ExtractFields(results []Record, fields []models.Field) []Record {
	out := make([]Record, 0, len(results))
	for _, result := range results {
		extracted := make(Record, len(fields))
		for _, f := range fields {
			if v, ok := result[string(f)]; ok {
				extracted[string(f)] = v
			} else {
				extracted[string(f)] = json.RawMessage("null")
			}
		}
		out = append(out, extracted)
	}
	return out
}

// Search runs the search with the default limit applied and returns the
// requested fields of every result serialized as a JSON array.
func (s *FDAService) Search(ctx context.Context, search models.StructuredSearch) (string, error) {
	if search.Limit == 0 {
		search.Limit = s.defaultLimit
	}

	results, err := s.SearchDrug(ctx, search)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(ExtractFields(results, search.Fields))
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode results: %w", ErrFDARequest, err)
	}
	return string(raw), nil
}
