// Package catalog resolves dataset metadata from the data.gouv.fr API,
// backed by a local sqlite cache so repeated runs skip most requests.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/mgaultier/dumpstats/internal/stats"
)

// Client fetches dataset metadata from the catalog API. Every failure mode
// (network, HTTP status, malformed body) resolves to placeholder metadata;
// a lookup never aborts a run.
type Client struct {
	baseURL string
	delay   time.Duration
	client  *http.Client
	cache   *Cache
}

// NewClient creates a catalog client. cache may be nil, in which case every
// id goes to the network. delay is inserted between consecutive requests to
// respect the API rate limit.
func NewClient(baseURL string, timeout, delay time.Duration, cache *Cache) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		delay:   delay,
		client:  &http.Client{Timeout: timeout},
		cache:   cache,
	}
}

// Get fetches metadata for one dataset from the API. The context cancels
// an in-flight request immediately, without waiting out the client timeout.
func (c *Client) Get(ctx context.Context, datasetID string) (*stats.Metadata, error) {
	url := fmt.Sprintf("%s/datasets/%s/", c.baseURL, datasetID)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "dumpstats/1.0 (stats pipeline)")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog HTTP %d for %s", resp.StatusCode, datasetID)
	}

	var body struct {
		ID           string `json:"id"`
		Title        string `json:"title"`
		Slug         string `json:"slug"`
		Page         string `json:"page"`
		Organization *struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"organization"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}

	meta := stats.Metadata{
		ID:           datasetID,
		Title:        body.Title,
		Slug:         body.Slug,
		Organization: "Inconnu",
		URL:          body.Page,
	}
	if meta.Title == "" {
		meta.Title = "Inconnu"
	}
	if body.Organization != nil {
		meta.Organization = body.Organization.Name
		meta.OrganizationID = body.Organization.ID
	}
	if meta.URL == "" {
		slug := body.Slug
		if slug == "" {
			slug = datasetID
		}
		meta.URL = fmt.Sprintf("https://www.data.gouv.fr/fr/datasets/%s/", slug)
	}
	return &meta, nil
}

// Resolve looks up metadata for every id, cache first, then the API with
// the configured inter-request delay. Failed lookups get placeholder
// metadata. Ids are processed in sorted order so runs are reproducible.
// A canceled context stops promptly with the ids resolved so far.
func (c *Client) Resolve(ctx context.Context, ids map[string]struct{}) (map[string]stats.Metadata, error) {
	sorted := make([]string, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Strings(sorted)

	log.Printf("resolving metadata for %d datasets...", len(sorted))

	resolved := make(map[string]stats.Metadata, len(sorted))
	var fetched, cached, failed int

	for i, id := range sorted {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}

		hit := false
		if c.cache != nil {
			if meta, ok := c.cache.Get(id); ok {
				resolved[id] = *meta
				cached++
				hit = true
			}
		}

		if !hit {
			meta, err := c.Get(ctx, id)
			if err != nil {
				failed++
				resolved[id] = stats.PlaceholderMetadata(id)
			} else {
				resolved[id] = *meta
				fetched++
				if c.cache != nil {
					if err := c.cache.Put(*meta); err != nil {
						log.Printf("caching metadata for %s: %v", id, err)
					}
				}
			}
		}

		if (i+1)%10 == 0 || i+1 == len(sorted) {
			log.Printf("  %d/%d metadata resolved", i+1, len(sorted))
		}

		// Cache hits never touch the network, so no need to pace them.
		if !hit && c.delay > 0 && i+1 < len(sorted) {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return resolved, ctx.Err()
			}
		}
	}

	if failed > 0 {
		log.Printf("  %d datasets without metadata, using placeholders", failed)
	}
	log.Printf("  metadata: %d from cache, %d fetched, %d placeholders", cached, fetched, failed)

	return resolved, nil
}

// ResolvePlaceholders returns placeholder metadata for every id without
// touching the network or the cache. Used by --skip-metadata runs.
func ResolvePlaceholders(ids map[string]struct{}) map[string]stats.Metadata {
	resolved := make(map[string]stats.Metadata, len(ids))
	for id := range ids {
		resolved[id] = stats.PlaceholderMetadata(id)
	}
	return resolved
}
