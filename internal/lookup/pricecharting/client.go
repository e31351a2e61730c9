// Package pricecharting implements pricing.SourceLookup against the
// PriceCharting website.
package pricecharting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/banktcg/gradesync/internal/archive"
	"github.com/banktcg/gradesync/internal/metrics"
	"github.com/banktcg/gradesync/internal/pricing"
)

// DefaultBaseURL is the production site root.
const DefaultBaseURL = "https://www.pricecharting.com"

// Config controls the lookup client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client fetches and parses search and product pages via Colly.
type Client struct {
	cfg       Config
	collector *colly.Collector
	archive   archive.Provider
	logger    *zap.Logger
}

// New constructs a Client. The archive provider receives every fetched
// product page; pass archive.NoOpProvider to discard them.
func New(cfg Config, arc archive.Provider, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	base.AllowURLRevisit = true
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
	})

	return &Client{
		cfg:       cfg,
		collector: base,
		archive:   arc,
		logger:    logger,
	}
}

// Search queries the site for an item. An unambiguous match redirects
// straight to a product page (the final URL contains "/game/"); otherwise
// the result page's candidate rows are returned for disambiguation.
func (c *Client) Search(ctx context.Context, query string) (pricing.SearchResult, error) {
	searchURL := fmt.Sprintf("%s/search-products?type=prices&q=%s", c.cfg.BaseURL, url.QueryEscape(query))
	page, err := c.fetch(ctx, searchURL)
	if err != nil {
		metrics.LookupRequest("search", "error")
		return pricing.SearchResult{}, err
	}
	metrics.LookupRequest("search", "ok")

	if strings.Contains(page.finalURL, "/game/") {
		return pricing.SearchResult{Reference: page.finalURL}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.body))
	if err != nil {
		return pricing.SearchResult{}, fmt.Errorf("parse search page: %w", err)
	}
	return pricing.SearchResult{Candidates: parseCandidates(doc, c.cfg.BaseURL)}, nil
}

// FetchObservations pulls the product page once and parses every tracked
// grade tab plus the population report from the same document.
func (c *Client) FetchObservations(ctx context.Context, sourceRef string) (pricing.ObservationBatch, error) {
	page, err := c.fetch(ctx, sourceRef)
	if err != nil {
		metrics.LookupRequest("fetch", "error")
		return pricing.ObservationBatch{}, err
	}
	metrics.LookupRequest("fetch", "ok")

	c.archivePage(ctx, sourceRef, page.body)

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.body))
	if err != nil {
		return pricing.ObservationBatch{}, fmt.Errorf("parse product page: %w", err)
	}

	batch := pricing.ObservationBatch{
		Sales:      make(map[int][]pricing.RawSale, len(gradeTabs)),
		Population: parsePopulation(doc),
	}
	for tabClass, grade := range gradeTabs {
		batch.Sales[grade] = parseSalesForGrade(doc, tabClass)
	}
	return batch, nil
}

type fetchedPage struct {
	finalURL string
	body     []byte
}

// fetch retrieves one page through a cloned collector so each request gets
// isolated callbacks.
func (c *Client) fetch(ctx context.Context, rawURL string) (fetchedPage, error) {
	collector := c.collector.Clone()
	var page fetchedPage
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		page = fetchedPage{
			finalURL: r.Request.URL.String(),
			body:     append([]byte{}, r.Body...),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := collector.Visit(rawURL); err != nil {
		return fetchedPage{}, fmt.Errorf("visit %s: %w", rawURL, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return fetchedPage{}, err
	}
	if fetchErr != nil {
		return fetchedPage{}, fetchErr
	}
	if page.finalURL == "" {
		return fetchedPage{}, errors.New("fetch produced no response")
	}
	return page, nil
}

// archivePage saves the raw HTML for later reprocessing. Best-effort.
func (c *Client) archivePage(ctx context.Context, sourceRef string, body []byte) {
	name := archive.ObjectName(sourceRef)
	if err := c.archive.Save(ctx, name, body); err != nil {
		c.logger.Warn("archive product page failed",
			zap.String("source_ref", sourceRef),
			zap.Error(err),
		)
	}
}
