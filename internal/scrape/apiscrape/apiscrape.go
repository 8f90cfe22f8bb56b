// Package apiscrape replays a discovered API endpoint (models.APIConfig) to
// fetch daily mandi price records, grounded on
// original_source/scraper/app/scraping/api_scraper.go's scrape_api/
// _extract_records.
package apiscrape

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/mandi-agent/internal/jsonrecords"
	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/runctx"
)

const (
	defaultMaxPages      = 10
	defaultPageParam     = "page"
	defaultPageSizeParam = "limit"
	defaultPageSize      = 100
	rateLimitWaitSeconds = 5
	requestTimeout       = 30 * time.Second
)

var defaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
}

// Scraper fetches API endpoints with plain net/http (no OpenAI/HTTP-client
// SDK exists anywhere in the example pack for outbound calls, matching
// quaero's internal/httpclient stdlib idiom).
type Scraper struct {
	client *http.Client
	logger arbor.ILogger
}

func New(logger arbor.ILogger) *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// paginationMode resolves cfg's effective pagination mode: an explicit
// PaginationMode wins, otherwise it falls back to the legacy Paginate bool
// (true -> page, false -> none), matching the original's
// paginate=source.get("paginate", True) default-on behavior for API
// sources that haven't stated a mode at all.
func paginationMode(cfg models.APIConfig) models.PaginationMode {
	switch cfg.PaginationMode {
	case models.PaginationPage, models.PaginationOffset, models.PaginationNone:
		return cfg.PaginationMode
	}
	if cfg.Paginate {
		return models.PaginationPage
	}
	return models.PaginationNone
}

// Scrape fetches every page of cfg.Endpoint per cfg's pagination mode
// (none/page/offset) and returns the flattened record list.
func (s *Scraper) Scrape(ctx context.Context, rc *runctx.RunContext, cfg models.APIConfig, requestDelay time.Duration) ([]map[string]any, error) {
	var allRecords []map[string]any

	mode := paginationMode(cfg)

	requestHeaders := map[string]string{}
	for k, v := range defaultHeaders {
		requestHeaders[k] = v
	}
	for k, v := range cfg.Headers {
		requestHeaders[k] = v
	}

	totalPages := 1
	if mode != models.PaginationNone {
		totalPages = defaultMaxPages
	}

	// paceLimiter spaces out successive page requests at requestDelay,
	// matching original_source's polite delay between paginated calls;
	// the first request is never paced, and the limiter's one starting
	// token is spent up front so the wait before page 2 is paced too.
	var paceLimiter *rate.Limiter
	if requestDelay > 0 {
		paceLimiter = rate.NewLimiter(rate.Every(requestDelay), 1)
		paceLimiter.Allow()
	}

	for page := 1; page <= totalPages; page++ {
		data, status, err := s.fetchPage(ctx, cfg, requestHeaders, mode, page)
		if err != nil {
			rc.AddError(cfg.Endpoint, fmt.Sprintf("request error on page %d: %v", page, err), false)
			break
		}

		if status != http.StatusOK {
			rc.AddError(cfg.Endpoint, fmt.Sprintf("HTTP %d on page %d", status, page), false)
			if status == http.StatusForbidden || status == http.StatusTooManyRequests {
				s.logger.Warn().Int("status", status).Msg("apiscrape: rate limited, waiting before retry")
				select {
				case <-time.After(rateLimitWaitSeconds * time.Second):
				case <-ctx.Done():
					return allRecords, ctx.Err()
				}
				page-- // retry the same page
				continue
			}
			break
		}

		records := jsonrecords.Extract(data)
		if len(records) == 0 {
			s.logger.Debug().Int("page", page).Msg("apiscrape: no records on page — stopping pagination")
			break
		}

		allRecords = append(allRecords, records...)
		s.logger.Debug().Int("page", page).Int("records", len(records)).Int("total", len(allRecords)).Msg("apiscrape: page fetched")

		if mode == models.PaginationNone {
			break
		}
		if len(records) < defaultPageSize {
			break
		}

		if paceLimiter != nil {
			if err := paceLimiter.Wait(ctx); err != nil {
				return allRecords, ctx.Err()
			}
		}
	}

	s.logger.Info().Int("total", len(allRecords)).Str("endpoint", cfg.Endpoint).Msg("apiscrape: scrape complete")
	return allRecords, nil
}

// paginationParam returns the param name/value pair to inject for page,
// per mode: "page" sends the page number, "offset" sends
// (page-1)*defaultPageSize, matching spec §4.11's formula.
func paginationParam(mode models.PaginationMode, page int) (string, int) {
	if mode == models.PaginationOffset {
		return "offset", (page - 1) * defaultPageSize
	}
	return defaultPageParam, page
}

func (s *Scraper) fetchPage(ctx context.Context, cfg models.APIConfig, headers map[string]string, mode models.PaginationMode, page int) ([]byte, int, error) {
	var req *http.Request
	var err error

	if strings.EqualFold(cfg.Method, "POST") {
		body := map[string]any{}
		for k, v := range decodePostData(cfg.PostData) {
			body[k] = v
		}
		if mode != models.PaginationNone {
			paramName, paramValue := paginationParam(mode, page)
			body[paramName] = paramValue
			body[defaultPageSizeParam] = defaultPageSize
		}

		if cfg.PostContentType == "form" {
			form := url.Values{}
			for k, v := range body {
				form.Set(k, fmt.Sprintf("%v", v))
			}
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, strings.NewReader(form.Encode()))
			if err == nil {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
		} else {
			payload, marshalErr := json.Marshal(body)
			if marshalErr != nil {
				return nil, 0, fmt.Errorf("marshal post body: %w", marshalErr)
			}
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, cfg.Endpoint, bytes.NewReader(payload))
			if err == nil {
				req.Header.Set("Content-Type", "application/json")
			}
		}
	} else {
		reqURL, parseErr := url.Parse(cfg.Endpoint)
		if parseErr != nil {
			return nil, 0, fmt.Errorf("parse endpoint: %w", parseErr)
		}
		query := reqURL.Query()
		for k, v := range cfg.Params {
			query.Set(k, v)
		}
		if mode != models.PaginationNone {
			paramName, paramValue := paginationParam(mode, page)
			query.Set(paramName, strconv.Itoa(paramValue))
			query.Set(defaultPageSizeParam, strconv.Itoa(defaultPageSize))
		}
		reqURL.RawQuery = query.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	}
	if err != nil {
		return nil, 0, err
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// decodePostData parses cfg.PostData as a JSON object if set; APIConfig
// stores the configured POST body pre-serialized since discoverymode's
// rawExtractionConfig.Params is already map[string]string and PostData
// carries any richer structure the AI recommended.
func decodePostData(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil
	}
	return parsed
}
