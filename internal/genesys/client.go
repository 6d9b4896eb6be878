// Package genesys is the HTTP client for the cloud telephony platform:
// OAuth client-credentials auth, queue lookup, the paginated conversation
// detail query, and batch user-name resolution.
//
// All token and name-cache state is scoped to a Client instance; replacing
// credentials invalidates both.
package genesys

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mawsool/cx-insights/backend/internal/metrics"
	"github.com/mawsool/cx-insights/backend/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	pageSize = 100

	// tokenExpirySkew renews the token this long before the platform
	// would reject it
	tokenExpirySkew = time.Minute

	// The platform rate-limits clients per token; stay under it
	requestsPerSecond = 10
	requestBurst      = 20
)

// Credentials identify one OAuth client on one platform region
type Credentials struct {
	ClientID     string
	ClientSecret string
	Region       string // API domain, e.g. "mec1.pure.cloud"
}

// APIError is a non-success response from the platform
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Message)
}

// Client is a session-scoped platform client
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger

	authBase string
	apiBase  string

	mu          sync.Mutex
	creds       Credentials
	accessToken string
	tokenExpiry time.Time

	nameMu    sync.Mutex
	userNames map[string]string // resolved for the client lifetime
}

// NewClient creates a client for the given credentials
func NewClient(creds Credentials, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		logger:     logger.With().Str("component", "genesys").Logger(),
		authBase:   "https://login." + creds.Region,
		apiBase:    "https://api." + creds.Region,
		creds:      sanitized(creds),
		userNames:  make(map[string]string),
	}
}

// SetCredentials replaces the session credentials, invalidating the cached
// token and every resolved name
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	c.creds = sanitized(creds)
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.authBase = "https://login." + c.creds.Region
	c.apiBase = "https://api." + c.creds.Region
	c.mu.Unlock()

	c.nameMu.Lock()
	c.userNames = make(map[string]string)
	c.nameMu.Unlock()
}

// sanitized strips control characters that occasionally leak into
// copy-pasted credentials
func sanitized(creds Credentials) Credentials {
	clean := func(s string) string {
		return strings.TrimSpace(strings.Map(func(r rune) rune {
			if r < 0x20 || r == 0x7f {
				return -1
			}
			return r
		}, s))
	}
	creds.ClientID = clean(creds.ClientID)
	creds.ClientSecret = clean(creds.ClientSecret)
	creds.Region = clean(creds.Region)
	return creds
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// token returns a valid access token, fetching a new one when the cached
// token is missing or about to expire
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authBase+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	m := metrics.Get()
	m.RecordAPIRequest()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		m.RecordAPIError()
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.RecordAPIError()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &APIError{Op: "authentication", StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - tokenExpirySkew)
	m.RecordTokenRefresh()
	c.logger.Debug().Int("expires_in", tok.ExpiresIn).Msg("access token refreshed")

	return c.accessToken, nil
}

// doJSON issues an authenticated request and decodes the JSON response into
// out. Non-2xx responses become an *APIError.
func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, body, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	m := metrics.Get()
	m.RecordAPIRequest()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		m.RecordAPIError()
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		m.RecordAPIError()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

type queueListResponse struct {
	Entities []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"entities"`
}

// LookupQueueID resolves a queue name to its ID, case-insensitively
func (c *Client) LookupQueueID(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)

	var list queueListResponse
	endpoint := "/api/v2/routing/queues?name=" + url.QueryEscape(name)
	if err := c.doJSON(ctx, "queue lookup", http.MethodGet, endpoint, nil, &list); err != nil {
		return "", err
	}

	for _, q := range list.Entities {
		if strings.EqualFold(q.Name, name) {
			return q.ID, nil
		}
	}
	return "", fmt.Errorf("queue %q not found", name)
}

type detailsQuery struct {
	Interval       string          `json:"interval"`
	Paging         paging          `json:"paging"`
	SegmentFilters []segmentFilter `json:"segmentFilters"`
}

type paging struct {
	PageSize   int `json:"pageSize"`
	PageNumber int `json:"pageNumber"`
}

type segmentFilter struct {
	Type       string      `json:"type"`
	Predicates []predicate `json:"predicates"`
}

type predicate struct {
	Type      string `json:"type"`
	Dimension string `json:"dimension"`
	Operator  string `json:"operator"`
	Value     string `json:"value"`
}

type detailsResponse struct {
	Conversations []types.Conversation `json:"conversations"`
}

// FetchConversationPage retrieves one page of the conversation detail query
// for the queue over the given interval. A short page marks the last page.
func (c *Client) FetchConversationPage(ctx context.Context, queueID, interval string, pageNumber int) ([]types.Conversation, bool, error) {
	query := detailsQuery{
		Interval: interval,
		Paging:   paging{PageSize: pageSize, PageNumber: pageNumber},
		SegmentFilters: []segmentFilter{{
			Type: "and",
			Predicates: []predicate{{
				Type:      "dimension",
				Dimension: "queueId",
				Operator:  "matches",
				Value:     queueID,
			}},
		}},
	}

	var details detailsResponse
	if err := c.doJSON(ctx, "conversation details query", http.MethodPost, "/api/v2/analytics/conversations/details/query", query, &details); err != nil {
		return nil, false, err
	}

	c.logger.Debug().
		Str("interval", interval).
		Int("page", pageNumber).
		Int("records", len(details.Conversations)).
		Msg("detail page fetched")

	return details.Conversations, len(details.Conversations) < pageSize, nil
}
