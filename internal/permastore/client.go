// Package permastore is the HTTP client for the external thread-item
// identity store, which keeps each item's identifying tuple per revision so
// permalinks can be resolved across revisions. The parser core never calls
// it; the batch pipeline does, after a successful parse.
package permastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wikithread/talkparse/internal/thread"
)

// Client communicates with the permastore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ItemRecord is one thread item's identity tuple as stored per revision.
type ItemRecord struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"` // "comment" or "heading"
	Level           int        `json:"level"`
	Author          string     `json:"author,omitempty"`
	Timestamp       *time.Time `json:"timestamp,omitempty"`
	Transcluded     bool       `json:"transcluded,omitempty"`
	TranscludedFrom string     `json:"transcluded_from,omitempty"`
}

// RecordsForSet flattens a parsed set into storable identity tuples.
func RecordsForSet(set *thread.ThreadItemSet) []ItemRecord {
	items := set.ThreadItems()
	records := make([]ItemRecord, 0, len(items))
	for _, item := range items {
		rec := ItemRecord{
			ID:    item.ID(),
			Name:  item.Name(),
			Type:  "heading",
			Level: item.Level(),
		}
		rec.Transcluded, rec.TranscludedFrom = item.Transcluded()
		if c, ok := item.(*thread.CommentItem); ok {
			rec.Type = "comment"
			rec.Author = c.Author()
			ts := c.Timestamp()
			rec.Timestamp = &ts
		}
		records = append(records, rec)
	}
	return records
}

// PutItems stores the identity tuples for one revision, replacing any
// previous rows for it.
func (c *Client) PutItems(ctx context.Context, revision int64, records []ItemRecord) error {
	body, err := json.Marshal(struct {
		Items []ItemRecord `json:"items"`
	}{records})
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	u := fmt.Sprintf("%s/revisions/%d/items", c.baseURL, revision)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("put items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("put items for revision %d: status %d: %s", revision, resp.StatusCode, string(respBody))
	}
	return nil
}

// FindByID returns the stored record for an item id, nil when unknown.
func (c *Client) FindByID(ctx context.Context, id string) (*ItemRecord, error) {
	u := c.baseURL + "/items/" + url.PathEscape(id)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("find item %s: status %d: %s", id, resp.StatusCode, string(respBody))
	}

	var rec ItemRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return &rec, nil
}

// FindByName returns every stored record sharing a structural name; name
// collisions across revisions are expected and resolved by the caller.
func (c *Client) FindByName(ctx context.Context, name string) ([]ItemRecord, error) {
	u := c.baseURL + "/items?name=" + url.QueryEscape(name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("find items by name %s: status %d: %s", name, resp.StatusCode, string(respBody))
	}

	var result struct {
		Items []ItemRecord `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return result.Items, nil
}

// Close releases any resources (currently a no-op).
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
