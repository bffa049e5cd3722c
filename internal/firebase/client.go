package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var ErrUnexpectedStatus = errors.New("unexpected firebase status")

const defaultTimeout = 10 * time.Second

// Client talks to the Realtime Database REST API: every node is addressed
// as <base>/<key>.json, authenticated with ?auth=<token> when set.
type Client struct {
	http   *resty.Client
	base   string
	auth   string
	logger *logrus.Logger
}

func NewClient(baseURL, auth string, timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimRight(baseURL, "/")
	return &Client{
		http:   resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		base:   base,
		auth:   auth,
		logger: logger,
	}
}

// BaseURL returns the database root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

func (c *Client) HasAuth() bool {
	return c.auth != ""
}

func (c *Client) nodeURL(key string) string {
	return fmt.Sprintf("%s/%s.json", c.base, strings.Trim(key, "/"))
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if c.auth != "" {
		req.SetQueryParam("auth", c.auth)
	}
	return req
}

// Put overwrites the node at key with v.
func (c *Client) Put(ctx context.Context, key string, v interface{}) error {
	resp, err := c.request(ctx).SetBody(v).Put(c.nodeURL(key))
	if err != nil {
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: put %s: %d - %s", ErrUnexpectedStatus, key, resp.StatusCode(), resp.String())
	}
	c.logger.Debugf("Saved to Firebase: %s", key)
	return nil
}

// Get decodes the node at key into out. found is false when the node is empty.
func (c *Client) Get(ctx context.Context, key string, out interface{}) (found bool, err error) {
	resp, err := c.request(ctx).Get(c.nodeURL(key))
	if err != nil {
		return false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("%w: get %s: %d - %s", ErrUnexpectedStatus, key, resp.StatusCode(), resp.String())
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	resp, err := c.request(ctx).Delete(c.nodeURL(key))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: delete %s: %d - %s", ErrUnexpectedStatus, key, resp.StatusCode(), resp.String())
	}
	return nil
}

// Keys lists the top-level keys of the database, sorted.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	resp, err := c.request(ctx).SetQueryParam("shallow", "true").Get(c.base + "/.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read root: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: get root: %d - %s", ErrUnexpectedStatus, resp.StatusCode(), resp.String())
	}

	var root map[string]json.RawMessage
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("failed to decode root: %w", err)
	}

	keys := make([]string, 0, len(root))
	for k := range root {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
