// Package client is the HTTP client for the registry API, used by the CLI
// and the seeder.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mercury-net/mercury/internal/detect"
	"github.com/mercury-net/mercury/internal/registry/models"
)

type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// SetAccessToken attaches a bearer token to subsequent requests.
func (c *Client) SetAccessToken(token string) {
	c.accessToken = token
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type RegisterResponse struct {
	AgentID string `json:"agent_id"`
	APIKey  string `json:"api_key"`
}

// Register creates an agent credential. The returned API key is shown once.
func (c *Client) Register(agentID string) (*RegisterResponse, error) {
	var resp RegisterResponse
	err := c.postJSON("/auth/register", map[string]string{"agent_id": agentID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login exchanges an API key for an access token.
func (c *Client) Login(agentID, apiKey string) (*TokenResponse, error) {
	var resp TokenResponse
	err := c.postJSON("/auth/token", map[string]string{
		"agent_id": agentID,
		"api_key":  apiKey,
	}, &resp)
	if err != nil {
		return nil, err
	}
	c.accessToken = resp.AccessToken
	return &resp, nil
}

// Detect runs detection on a text without registering anything.
func (c *Client) Detect(text string) (*detect.Result, error) {
	var result detect.Result
	err := c.postJSON("/v1/detect", map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Submit registers an antibody for a text. Requires a token.
func (c *Client) Submit(text, threatLabel string) (*models.SubmitResult, error) {
	var result models.SubmitResult
	err := c.postJSON("/v1/antibodies", map[string]string{
		"text":         text,
		"threat_label": threatLabel,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Match checks whether a text's fingerprint is already registered.
func (c *Client) Match(text string) (*models.MatchResult, error) {
	var result models.MatchResult
	err := c.postJSON("/v1/antibodies/match", map[string]string{"text": text}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// List retrieves a page of antibodies, newest first.
func (c *Client) List(page, limit int, agentID, label string) (*models.ListResponse, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if agentID != "" {
		q.Set("agent_id", agentID)
	}
	if label != "" {
		q.Set("label", label)
	}

	path := "/v1/antibodies"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp models.ListResponse
	if err := c.getJSON(path, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get looks up one antibody by fingerprint.
func (c *Client) Get(fingerprint string) (*models.Antibody, error) {
	var a models.Antibody
	if err := c.getJSON("/v1/antibodies/"+url.PathEscape(fingerprint), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Stats retrieves registry statistics.
func (c *Client) Stats() (*models.Stats, error) {
	var stats models.Stats
	if err := c.getJSON("/v1/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Export streams the registry CSV to w.
func (c *Client) Export(w io.Writer) error {
	req, err := http.NewRequest("GET", c.baseURL+"/v1/antibodies/export", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("export failed: %s", string(body))
	}

	_, err = io.Copy(w, resp.Body)
	return err
}

// Import uploads a registry CSV. Requires a token.
func (c *Client) Import(r io.Reader) (*models.ImportResult, error) {
	req, err := http.NewRequest("POST", c.baseURL+"/v1/antibodies/import", r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/csv")
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("import failed: %s", string(body))
	}

	var result models.ImportResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreatePattern registers a detection pattern. Requires a token.
func (c *Client) CreatePattern(pattern, label string) (*models.Pattern, error) {
	var p models.Pattern
	err := c.postJSON("/v1/patterns", map[string]string{
		"pattern": pattern,
		"label":   label,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPatterns retrieves detection patterns.
func (c *Client) ListPatterns(includeDisabled bool) ([]*models.Pattern, error) {
	path := "/v1/patterns"
	if includeDisabled {
		path += "?include_disabled=true"
	}

	var resp struct {
		Patterns []*models.Pattern `json:"patterns"`
	}
	if err := c.getJSON(path, &resp); err != nil {
		return nil, err
	}
	return resp.Patterns, nil
}

func (c *Client) postJSON(path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) getJSON(path string, out interface{}) error {
	req, err := http.NewRequest("GET", c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	c.authorize(req)

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed (%d): %s", resp.StatusCode, string(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}
