package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-logr/logr"
	"github.com/tidwall/gjson"

	"github.com/opendata-sync/catalog-sync/internal/httpclient"
)

const (
	actionPath         = "/api/3/action/"
	actionPackageList  = "current_package_list_with_resources"
	actionVocabulary   = "vocabulary_show"
	defaultPageSize    = 100
	defaultMaxAttempts = 3
)

// ErrActionFailed is returned when CKAN answers with success=false
var ErrActionFailed = errors.New("catalog action failed")

// ErrInconsistentPaging is returned when a non-empty page adds no package to the export
var ErrInconsistentPaging = errors.New("catalog paging is inconsistent")

// ClientOption configures a Client
type ClientOption func(*Client)

// WithPageSize sets the number of packages requested per export page
func WithPageSize(size int) ClientOption {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// WithMaxAttempts sets how many times a failing request is attempted
func WithMaxAttempts(attempts uint) ClientOption {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithBackOff replaces the retry policy
func WithBackOff(newBackOff func() backoff.BackOff) ClientOption {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// Client implements Source against the CKAN action API
type Client struct {
	baseURL     string
	httpClient  httpclient.Client
	pageSize    int
	maxAttempts uint
	newBackOff  func() backoff.BackOff
}

var _ Source = (*Client)(nil)

// NewClient creates a CKAN client for the given server URL
func NewClient(server string, httpClient httpclient.Client, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(server, "/"),
		httpClient:  httpClient,
		pageSize:    defaultPageSize,
		maxAttempts: defaultMaxAttempts,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Export pages through current_package_list_with_resources until a page comes back empty.
// The server may cap the page below the requested limit (ckan.search.rows_max), so the
// offset advances by the number of packages actually returned and a short page never
// ends the export. A package id seen twice (the catalog changed while paging) keeps its
// first position and its latest content.
func (c *Client) Export(ctx context.Context) (*Snapshot, error) {
	logger := logr.FromContextOrDiscard(ctx)

	snapshot := &Snapshot{}
	positions := make(map[string]int)

	for offset := 0; ; {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(c.pageSize))
		params.Set("offset", strconv.Itoa(offset))

		result, err := c.callAction(ctx, actionPackageList, params)
		if err != nil {
			return nil, fmt.Errorf("failed to export packages at offset %d: %w", offset, err)
		}

		var page []Package
		if err := json.Unmarshal([]byte(result.Raw), &page); err != nil {
			return nil, fmt.Errorf("failed to decode packages at offset %d: %w", offset, err)
		}

		if len(page) == 0 {
			break
		}

		added := 0
		for _, pkg := range page {
			if pos, seen := positions[pkg.ID]; seen {
				snapshot.Packages[pos] = pkg
				continue
			}
			positions[pkg.ID] = len(snapshot.Packages)
			snapshot.Packages = append(snapshot.Packages, pkg)
			added++
		}

		logger.V(1).Info("Fetched package page", "offset", offset, "count", len(page), "new", added)

		// a server that ignores offset would otherwise be paged forever
		if added == 0 {
			return nil, fmt.Errorf("%w: page at offset %d only repeated exported packages", ErrInconsistentPaging, offset)
		}
		offset += len(page)
	}

	return snapshot, nil
}

// LookupVocabulary resolves a vocabulary id with vocabulary_show
func (c *Client) LookupVocabulary(ctx context.Context, id string) (*Vocabulary, error) {
	params := url.Values{}
	params.Set("id", id)

	result, err := c.callAction(ctx, actionVocabulary, params)
	if err != nil {
		return nil, fmt.Errorf("failed to look up vocabulary %s: %w", id, err)
	}

	vocab := &Vocabulary{
		ID:   result.Get("id").String(),
		Name: result.Get("name").String(),
	}
	if vocab.Name == "" {
		return nil, fmt.Errorf("vocabulary %s has no name", id)
	}
	return vocab, nil
}

// callAction performs a GET action call and returns the unwrapped result
func (c *Client) callAction(ctx context.Context, action string, params url.Values) (gjson.Result, error) {
	endpoint := c.baseURL + actionPath + action
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	operation := func() (gjson.Result, error) {
		body, err := c.httpClient.Get(ctx, endpoint)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) && !httpErr.Temporary() {
				return gjson.Result{}, backoff.Permanent(err)
			}
			return gjson.Result{}, err
		}

		if !gjson.ValidBytes(body) {
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("invalid JSON response from %s", action))
		}

		envelope := gjson.ParseBytes(body)
		if !envelope.Get("success").Bool() {
			return gjson.Result{}, backoff.Permanent(fmt.Errorf("%w: %s: %s",
				ErrActionFailed, action, envelope.Get("error.message").String()))
		}

		return envelope.Get("result"), nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxAttempts),
	)
}
