package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	perr "ledgerpipe/internal/platform/errors"
	"ledgerpipe/internal/platform/logger"

	"github.com/google/uuid"
)

// Writer is the narrow surface the pipeline needs to push entities
type Writer interface {
	// CreateEntities submits entities in order and returns one id per
	// accepted entity. Callers compare len(ids) against len(entities);
	// the client does not hide a short acknowledgment
	CreateEntities(ctx context.Context, entities []Entity) ([]string, error)
	Ping(ctx context.Context) error
}

// Querier is the read surface used by backfill checks and ops tooling
type Querier interface {
	Query(ctx context.Context, q Query) (*Page, error)
}

// Query is an annotation-predicate filter with paging
type Query struct {
	Where    map[string]any `json:"where"`
	PageSize int            `json:"page_size,omitempty"`
	Cursor   string         `json:"cursor,omitempty"`
}

// Page is one page of query results with a continuation cursor
type Page struct {
	Entities   []QueriedEntity `json:"entities"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

// QueriedEntity is an entity as returned by the query path
type QueriedEntity struct {
	ID          string      `json:"id"`
	Payload     []byte      `json:"payload"`
	ContentType string      `json:"content_type"`
	Annotations Annotations `json:"annotations"`
}

// Config configures the HTTP client
type Config struct {
	URL     string        // base URL, e.g. http://ledger:9400
	APIKey  string        // optional bearer token
	Timeout time.Duration // per call; <=0 -> 30s
}

// Client talks JSON over HTTP to the ledger store
type Client struct {
	base   string
	apiKey string
	hc     *http.Client
	log    logger.Logger
}

var (
	_ Writer  = (*Client)(nil)
	_ Querier = (*Client)(nil)
)

// New builds a Client from config
func New(cfg Config, log logger.Logger) *Client {
	to := cfg.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		hc:     &http.Client{Timeout: to},
		log:    log,
	}
}

// wireEntity is Entity with the expiry rendered as seconds
type wireEntity struct {
	Payload     []byte      `json:"payload"`
	ContentType string      `json:"content_type"`
	Annotations Annotations `json:"annotations"`
	ExpirySecs  int64       `json:"expiry_seconds"`
}

type createRequest struct {
	Entities []wireEntity `json:"entities"`
}

type createResponse struct {
	IDs []string `json:"ids"`
}

// CreateEntities performs one write call carrying the whole batch
func (c *Client) CreateEntities(ctx context.Context, entities []Entity) ([]string, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	req := createRequest{Entities: make([]wireEntity, 0, len(entities))}
	for _, e := range entities {
		if err := e.Annotations.Validate(); err != nil {
			return nil, perr.WithOp(err, "ledger.create")
		}
		req.Entities = append(req.Entities, wireEntity{
			Payload:     e.Payload,
			ContentType: e.ContentType,
			Annotations: e.Annotations,
			ExpirySecs:  int64(e.Expiry / time.Second),
		})
	}

	var resp createResponse
	if err := c.post(ctx, "/v1/entities", req, &resp); err != nil {
		return nil, err
	}
	return resp.IDs, nil
}

// Query fetches one page of entities matching the annotation predicate
func (c *Client) Query(ctx context.Context, q Query) (*Page, error) {
	var page Page
	if err := c.post(ctx, "/v1/entities/query", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Ping checks the store's health endpoint
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/v1/healthz", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.hc.Do(req)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "ledger ping")
	}
	defer drain(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return perr.Unavailablef("ledger ping: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "ledger request encode")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		// transport failures and client timeouts are both worth a retry
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "ledger call %s", path)
	}
	defer drain(resp.Body)

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("ledger call")

	if err := statusErr(resp, path); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeJSON, "ledger response decode %s", path)
	}
	return nil
}

// decorate adds auth and a correlation id to outgoing requests
func (c *Client) decorate(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// statusErr maps non-2xx responses onto the project error codes so the retry
// supervisor can classify them
func statusErr(resp *http.Response, path string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return perr.Unavailablef("ledger call %s: status %d", path, resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return perr.InvalidArgf("ledger call %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func drain(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 1<<16))
	_ = rc.Close()
}

// ConfReader is the slice of config.Conf the client needs; mains pass a
// SERVICE_LEDGER_ prefixed view
type ConfReader interface {
	MustString(key string) string
	MayString(key, def string) string
	MayDuration(key string, def time.Duration) time.Duration
}

// FromConf builds a Config from a prefixed Conf view
func FromConf(cfg ConfReader) Config {
	return Config{
		URL:     cfg.MustString("URL"),
		APIKey:  cfg.MayString("API_KEY", ""),
		Timeout: cfg.MayDuration("TIMEOUT", 30*time.Second),
	}
}
