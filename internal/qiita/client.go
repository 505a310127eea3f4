// Package qiita implements the HTTP/JSON client side of the Qiita plugin
// contract: oauth authentication, artifact and prep-template lookups, job
// heartbeats, job completion, and plugin registration.
package qiita

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// Client talks to a Qiita server on behalf of this plugin.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	token        string
	httpClient   *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithCredentials sets the oauth client credentials used by Authenticate.
func WithCredentials(id, secret string) Option {
	return func(c *Client) {
		c.clientID = id
		c.clientSecret = secret
	}
}

// WithServerCert adds the PEM certificate at path to the client's CA pool.
// Qiita test servers run with self-signed certificates.
func WithServerCert(path string) Option {
	return func(c *Client) {
		pem, err := os.ReadFile(path)
		if err != nil {
			return
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pool.AppendCertsFromPEM(pem)
		c.httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: pool},
		}
	}
}

// NewClient creates a client targeting the given base URL
// (e.g. "https://localhost:21174").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Authenticate fetches an access token using the client-credentials grant
// and stores it for subsequent requests.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/qiita_db/authenticate/", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("server returned an empty access token")
	}
	c.token = tok.AccessToken
	return nil
}

// Artifact is the file listing and provenance of one Qiita artifact.
type Artifact struct {
	Files    map[string][]string `json:"files"` // filepath type -> paths
	PrepInfo []int               `json:"prep_information"`
}

// GetArtifact fetches the filepath information for an artifact.
func (c *Client) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	var a Artifact
	if err := c.doJSON(ctx, http.MethodGet, "/qiita_db/artifacts/"+url.PathEscape(id)+"/", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// PrepTemplate holds the prep-template metadata a job needs; QiimeMap is the
// path to the QIIME mapping file on shared storage.
type PrepTemplate struct {
	QiimeMap string `json:"qiime-map"`
}

// GetPrepTemplate fetches the prep template metadata for the given ID.
func (c *Client) GetPrepTemplate(ctx context.Context, id int) (*PrepTemplate, error) {
	var p PrepTemplate
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/qiita_db/prep_template/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// JobInfo is the server's description of a job this plugin should run.
type JobInfo struct {
	Command    string           `json:"command"`
	Parameters model.Parameters `json:"parameters"`
	Status     string           `json:"status"`
}

// GetJob fetches the command and parameters of a job.
func (c *Client) GetJob(ctx context.Context, jobID string) (*JobInfo, error) {
	var j JobInfo
	if err := c.doJSON(ctx, http.MethodGet, "/qiita_db/jobs/"+url.PathEscape(jobID)+"/", nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// UpdateJobStep posts a progress heartbeat for the job.
func (c *Client) UpdateJobStep(ctx context.Context, jobID, msg string) error {
	body := map[string]string{"step": msg}
	return c.doJSON(ctx, http.MethodPost, "/qiita_db/jobs/"+url.PathEscape(jobID)+"/step/", body, nil)
}

// CompleteJob reports the final result of a job. On success the produced
// artifacts are attached; on failure errMsg carries the diagnostic.
func (c *Client) CompleteJob(ctx context.Context, jobID string, success bool, artifacts []model.ArtifactInfo, errMsg string) error {
	body := map[string]any{
		"success":   success,
		"error":     errMsg,
		"artifacts": artifacts,
	}
	return c.doJSON(ctx, http.MethodPost, "/qiita_db/jobs/"+url.PathEscape(jobID)+"/complete/", body, nil)
}

// RegisterPlugin registers (or re-registers) the plugin and its commands.
// The server treats re-registration of an existing version as an update.
func (c *Client) RegisterPlugin(ctx context.Context, p model.Plugin) error {
	return c.doJSON(ctx, http.MethodPost, "/qiita_db/plugins/", p, nil)
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// JSON response. If result is nil, the response body is discarded.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
