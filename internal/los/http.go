package los

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "losbridge/pkg/domain"
	dErrors "losbridge/pkg/domain-errors"
)

// tokenEarlyRefresh refreshes the access token before its reported expiry so
// an in-flight request never carries a token that dies mid-call.
const tokenEarlyRefresh = 5 * time.Minute

// HTTPClient talks to the real LOS over its REST API using OAuth2
// client-credentials. Tokens are cached and refreshed early; requests are
// bounded only by the caller's context.
type HTTPClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *slog.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewHTTPClient constructs a client against the given LOS instance.
func NewHTTPClient(baseURL, clientID, clientSecret string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

func (c *HTTPClient) CreateLoan(ctx context.Context, folder string, fields []FieldValue) (*Loan, error) {
	path := "/v3/loans?loanFolder=" + url.QueryEscape(folder)
	var loan Loan
	if err := c.request(ctx, http.MethodPost, path, map[string]any{"fields": fields}, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *HTTPClient) GetLoan(ctx context.Context, loanID id.ExternalLoanID) (*Loan, error) {
	var loan Loan
	if err := c.request(ctx, http.MethodGet, "/v3/loans/"+url.PathEscape(loanID.String()), nil, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *HTTPClient) UpdateLoan(ctx context.Context, loanID id.ExternalLoanID, fields []FieldValue) error {
	path := "/v3/loans/" + url.PathEscape(loanID.String())
	return c.request(ctx, http.MethodPatch, path, map[string]any{"fields": fields}, nil)
}

func (c *HTTPClient) SearchLoans(ctx context.Context, filter SearchFilter) ([]*Loan, error) {
	body := map[string]any{
		"filter": map[string]any{
			"operator": "and",
			"terms":    []map[string]any{{"canonicalName": filter.FieldID, "matchType": "exact", "value": filter.Value}},
		},
	}
	var loans []*Loan
	if err := c.request(ctx, http.MethodPost, "/v3/loanPipeline", body, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

func (c *HTTPClient) UpdateMilestone(ctx context.Context, loanID id.ExternalLoanID, update MilestoneUpdate) error {
	path := "/v3/loans/" + url.PathEscape(loanID.String()) + "/milestone"
	return c.request(ctx, http.MethodPut, path, update, nil)
}

func (c *HTTPClient) AddCondition(ctx context.Context, loanID id.ExternalLoanID, req ConditionRequest) (*Condition, error) {
	path := "/v3/loans/" + url.PathEscape(loanID.String()) + "/conditions"
	var condition Condition
	if err := c.request(ctx, http.MethodPost, path, req, &condition); err != nil {
		return nil, err
	}
	return &condition, nil
}

func (c *HTTPClient) ClearCondition(ctx context.Context, loanID id.ExternalLoanID, conditionID string, req ClearConditionRequest) error {
	path := "/v3/loans/" + url.PathEscape(loanID.String()) + "/conditions/" + url.PathEscape(conditionID) + "/clear"
	return c.request(ctx, http.MethodPatch, path, req, nil)
}

// request performs one authenticated call. Non-2xx responses become
// CodeExternalCall errors; 404 maps to CodeNotFound so callers can branch.
func (c *HTTPClient) request(ctx context.Context, method, path string, body, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeExternalCall, method+" "+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return dErrors.New(dErrors.CodeNotFound, "external resource not found: "+path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return dErrors.New(dErrors.CodeExternalCall,
			fmt.Sprintf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(dErrors.CodeExternalCall, "decode response", err)
	}
	return nil
}

// token returns a cached access token, fetching a fresh one when missing or
// close to expiry.
func (c *HTTPClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {"lp"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/oauth2/v1/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeExternalCall, "fetch access token", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", dErrors.New(dErrors.CodeNotConfigured,
			fmt.Sprintf("token endpoint returned status %d", resp.StatusCode))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", dErrors.Wrap(dErrors.CodeExternalCall, "decode token response", err)
	}
	if payload.AccessToken == "" {
		return "", dErrors.New(dErrors.CodeNotConfigured, "token endpoint returned no access token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = tokenExpiry(payload.AccessToken, payload.ExpiresIn)
	return c.accessToken, nil
}

// tokenExpiry prefers the exp claim when the token is a JWT; some LOS
// deployments report a generous expires_in but rotate signing keys earlier.
// Falls back to expires_in (default one hour) for opaque tokens.
func tokenExpiry(token string, expiresIn int) time.Time {
	if claims := parseExpClaim(token); !claims.IsZero() {
		return claims.Add(-tokenEarlyRefresh)
	}
	if expiresIn <= 0 {
		expiresIn = 3600
	}
	return time.Now().Add(time.Duration(expiresIn)*time.Second - tokenEarlyRefresh)
}

func parseExpClaim(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
