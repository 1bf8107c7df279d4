package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stlalpha/tecnoter/internal/logging"
)

// ErrNotFound is returned when the content server answers 404.
var ErrNotFound = errors.New("content not found")

// maxBody bounds every response read.
const maxBody = 4 << 20

// StatusError carries a non-2xx status from the content server.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

// Client fetches the JSON endpoints generated by the Hugo site.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a Client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// resolve turns a site-relative path into an absolute URL. Absolute URLs
// pass through.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "tecnoter-node/2.0")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("GET %s: %w", url, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

// FetchIndex loads <base>/index.json. When the index carries no posts the
// legacy <base>/posts/index.json array is tried.
func (c *Client) FetchIndex(ctx context.Context) (Index, error) {
	var idx Index
	url := c.resolve("/index.json")
	body, err := c.get(ctx, url)
	if err != nil {
		return idx, err
	}
	if err := json.Unmarshal(body, &idx); err != nil {
		return idx, fmt.Errorf("parse %s: %w", url, err)
	}

	if len(idx.Posts) == 0 {
		legacy := c.resolve("/posts/index.json")
		if body, err := c.get(ctx, legacy); err == nil {
			var posts []Item
			if err := json.Unmarshal(body, &posts); err == nil {
				idx.Posts = posts
			} else {
				logging.Debug("legacy post list %s unparsable: %v", legacy, err)
			}
		} else {
			logging.Debug("legacy post list %s unavailable: %v", legacy, err)
		}
	}

	if idx.SystemInfo == (SystemInfo{}) {
		idx.SystemInfo = DefaultSystemInfo()
	}
	return idx, nil
}

// FetchDocument loads a post or page body from "<url>/index.json". HTML
// content is converted to plain text paragraphs. A non-JSON body is used
// as raw text.
func (c *Client) FetchDocument(ctx context.Context, item Item) (Document, error) {
	url := c.resolve(item.ContentPath())
	body, err := c.get(ctx, url)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		logging.Debug("document %s is not JSON, using raw body", url)
		doc = Document{Title: item.Title, Content: string(body)}
	}
	if doc.Title == "" {
		doc.Title = item.Title
	}
	if doc.Content != "" && LooksLikeHTML(doc.Content) {
		doc.Content = HTMLToText(doc.Content)
	}
	return doc, nil
}

// FetchRaw fetches an arbitrary URL for curl.
func (c *Client) FetchRaw(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, c.resolve(url))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
