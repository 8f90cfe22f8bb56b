// Package browserdrv drives a single headless Chrome instance per navigation
// call. Unlike the teacher's pooled ChromeDPPool, the discovery engine never
// needs more than one in-flight page at a time (spec.md §4.5/C5), so each
// call to Navigate launches its own browser, navigates, extracts, and closes
// — guaranteed via defer, on every return path including panics.
package browserdrv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// htmlSnippetMaxLen caps the body HTML handed to the AI context, matching
// original_source's navigate_and_extract.
const htmlSnippetMaxLen = 5000

// jsSettleWait is how long the driver waits after load for late JS
// rendering to finish, matching original_source's navigate_and_extract.
const jsSettleWait = 1 * time.Second

// Link is an internal anchor discovered on a navigated page.
type Link struct {
	URL  string
	Text string
}

// NavResult is the outcome of a single Navigate call.
type NavResult struct {
	URL         string // final URL after redirects
	Title       string
	Links       []Link
	HTMLSnippet string
	Status      int64
	Error       string
}

// ResponseInfo is one correlated request/response pair observed during a
// Navigate call — the request's method/headers/POST body (captured from
// Network.requestWillBeSent) joined to its response (captured from
// Network.responseReceived) by CDP request ID, matching
// original_source's network_sniffer.py candidate dict (url, method,
// status, content_type, request_headers, post_data).
type ResponseInfo struct {
	URL            string
	Method         string
	RequestHeaders map[string]string
	PostBody       string
	Status         int64
	MimeType       string
	Body           []byte
}

// ResponseSniffer receives every XHR/fetch network response observed
// during a Navigate call. It is how the network sniffer (C6) taps API
// traffic without the driver needing to know anything about JSON record
// shapes.
type ResponseSniffer interface {
	OnResponse(info ResponseInfo)
}

// Driver launches one browser per Navigate call.
type Driver struct {
	headless   bool
	navTimeout time.Duration
	userAgent  string
	logger     arbor.ILogger
	sniffer    ResponseSniffer
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// New creates a Driver. navTimeout bounds each Navigate call.
func New(headless bool, navTimeout time.Duration, logger arbor.ILogger) *Driver {
	return &Driver{
		headless:   headless,
		navTimeout: navTimeout,
		userAgent:  defaultUserAgent,
		logger:     logger,
	}
}

// AttachSniffer registers a ResponseSniffer for all subsequent Navigate
// calls. Pass nil to detach.
func (d *Driver) AttachSniffer(s ResponseSniffer) {
	d.sniffer = s
}

// DetachSniffer removes the currently attached sniffer, if any.
func (d *Driver) DetachSniffer() {
	d.sniffer = nil
}

// Navigate launches a fresh headless browser, navigates to url, waits for
// late JS rendering, extracts title/internal-links/HTML snippet, and closes
// the browser before returning — on every path, including a recovered
// panic inside chromedp.
func (d *Driver) Navigate(ctx context.Context, navURL string) (result *NavResult, err error) {
	result = &NavResult{URL: navURL}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, d.execAllocatorOpts()...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Sprintf("panic during navigation: %v", r)
			if d.logger != nil {
				d.logger.Error().Str("url", navURL).Interface("panic", r).Msg("browserdrv: recovered panic")
			}
			err = nil
		}
	}()

	timeoutCtx, cancel := context.WithTimeout(browserCtx, d.navTimeout)
	defer cancel()

	if d.sniffer != nil {
		d.attachNetworkListener(timeoutCtx)
	}

	var statusCode int64
	chromedp.ListenTarget(timeoutCtx, func(ev interface{}) {
		respEv, ok := ev.(*network.EventResponseReceived)
		if !ok || respEv.Type != network.ResourceTypeDocument {
			return
		}
		statusCode = respEv.Response.Status
	})

	var finalURL, title, bodyHTML string

	navErr := chromedp.Run(timeoutCtx,
		network.Enable(),
		chromedp.Navigate(navURL),
		chromedp.Sleep(jsSettleWait),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.Evaluate(`document.body ? document.body.innerHTML.substring(0, 5000) : ''`, &bodyHTML),
	)
	if navErr != nil {
		result.Error = navErr.Error()
		if d.logger != nil {
			d.logger.Debug().Str("url", navURL).Err(navErr).Msg("browserdrv: navigation failed")
		}
		return result, nil
	}

	if finalURL != "" {
		result.URL = finalURL
	}
	result.Title = title
	result.Status = statusCode
	if len(bodyHTML) > htmlSnippetMaxLen {
		bodyHTML = bodyHTML[:htmlSnippetMaxLen]
	}
	result.HTMLSnippet = bodyHTML
	result.Links = extractLinks(timeoutCtx, result.URL)

	return result, nil
}

// execAllocatorOpts builds the chromedp allocator flags, matching the
// teacher's createBrowserInstance: headless + disabled GPU/sandbox/dev-shm,
// with background throttling left enabled (unlike the teacher, which
// disables it for crawler pools) since a single short-lived page has no
// need to stay foregrounded.
func (d *Driver) execAllocatorOpts() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:0:0], chromedp.DefaultExecAllocatorOptions...)
	opts = append(opts,
		chromedp.Flag("headless", d.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(d.userAgent),
	)
	return opts
}

// capturedRequest holds the request-side data CDP only reports via
// Network.requestWillBeSent — responseReceived carries none of it.
type capturedRequest struct {
	method   string
	headers  map[string]string
	postBody string
}

// attachNetworkListener wires the driver's ResponseSniffer to CDP's
// Network.requestWillBeSent/responseReceived/getResponseBody events for the
// duration of ctx. The two events are correlated by RequestID: requestWillBeSent
// fires first and carries method/headers/postData, responseReceived fires later
// with status/mimeType — matching original_source's network_sniffer.py, which
// reads both off the same Playwright request object in one callback.
func (d *Driver) attachNetworkListener(ctx context.Context) {
	var mu sync.Mutex
	pending := make(map[network.RequestID]capturedRequest)

	chromedp.ListenTarget(ctx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			if e.Type != network.ResourceTypeXHR && e.Type != network.ResourceTypeFetch {
				return
			}
			headers := make(map[string]string, len(e.Request.Headers))
			for k, v := range e.Request.Headers {
				headers[k] = fmt.Sprintf("%v", v)
			}
			mu.Lock()
			pending[e.RequestID] = capturedRequest{
				method:   e.Request.Method,
				headers:  headers,
				postBody: e.Request.PostData,
			}
			mu.Unlock()

		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeXHR && e.Type != network.ResourceTypeFetch {
				return
			}
			reqID := e.RequestID
			mimeType := e.Response.MimeType
			status := e.Response.Status
			respURL := e.Response.URL

			mu.Lock()
			req, found := pending[reqID]
			delete(pending, reqID)
			mu.Unlock()

			method := req.method
			if !found || method == "" {
				method = "GET"
			}

			go func() {
				var body []byte
				_ = chromedp.Run(ctx, chromedp.ActionFunc(func(c context.Context) error {
					data, getErr := network.GetResponseBody(reqID).Do(c)
					if getErr != nil {
						return getErr
					}
					body = data
					return nil
				}))
				if d.sniffer != nil {
					d.sniffer.OnResponse(ResponseInfo{
						URL:            respURL,
						Method:         method,
						RequestHeaders: req.headers,
						PostBody:       req.postBody,
						Status:         status,
						MimeType:       mimeType,
						Body:           body,
					})
				}
			}()
		}
	})
}

// extractLinks runs the link-extraction JS in the current page context and
// filters to normalized, deduplicated, internal links, matching
// original_source's extract_links semantics exactly (exclude #, javascript:,
// mailto:, tel: hrefs).
func extractLinks(ctx context.Context, baseURL string) []Link {
	type rawLink struct {
		Href string `json:"href"`
		Text string `json:"text"`
	}
	var raw []rawLink
	script := `Array.from(document.querySelectorAll('a[href]')).map(a => ({
		href: a.getAttribute('href'),
		text: (a.textContent || '').trim().substring(0, 200),
	}))`
	if err := chromedp.Run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil
	}

	links := make([]Link, 0, len(raw))
	seen := make(map[string]bool)

	for _, item := range raw {
		href := item.Href
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			continue
		}
		if strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			continue
		}

		absolute := urlutil.ResolveURL(href, baseURL)
		if absolute == "" {
			continue
		}
		normalized := urlutil.NormalizeURL(absolute)

		if seen[normalized] {
			continue
		}
		if !urlutil.IsInternalLink(normalized, baseURL) {
			continue
		}

		seen[normalized] = true
		links = append(links, Link{URL: normalized, Text: item.Text})
	}

	return links
}
