package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	errs "github.com/syrthax/blogsync/internal/errors"
)

const defaultBaseURL = "https://api.github.com"

// Client talks to the GitHub contents API for a single repository.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	owner      string
	repo       string
}

// NewClient creates an API client for the given repository. If httpClient
// is nil, a default client with a 30 second timeout is used.
func NewClient(httpClient *http.Client, token, owner, repo string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    defaultBaseURL,
		token:      token,
		owner:      owner,
		repo:       repo,
	}
}

// SetBaseURL overrides the API base URL, for GitHub Enterprise hosts.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimSuffix(u, "/")
}

// do sends a JSON request and decodes the response into result.
// body and result may be nil.
func (c *Client) do(ctx context.Context, method, endpoint string, body, result interface{}) error {
	var reqBody io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request body: %w", err)
		}

		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(method, endpoint, resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
	}

	return nil
}

// apiError maps an API failure to the local error taxonomy, carrying the
// server's message field through for user display.
func apiError(method, endpoint string, status int, body []byte) error {
	msg := gjson.GetBytes(body, "message").Str
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w: %s", method, endpoint, errs.ErrBadToken, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, endpoint, errs.ErrNotFound)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		// 409 is a SHA mismatch; 422 is a create against an existing path
		// (the API demands the SHA that was not supplied). Both mean the
		// caller's view of the stored version is stale.
		return fmt.Errorf("%s %s: %w: %s", method, endpoint, errs.ErrConflict, msg)
	}

	return fmt.Errorf("API %s %s returned status %d: %s", method, endpoint, status, msg)
}

// contentsEndpoint builds the contents-API endpoint for a repository path,
// escaping each path segment.
func (c *Client) contentsEndpoint(repoPath string) string {
	segments := strings.Split(repoPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}

	return fmt.Sprintf("/repos/%s/%s/contents/%s", c.owner, c.repo, strings.Join(segments, "/"))
}

// GetUser returns the authenticated identity.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/user", nil, &user); err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}

	return &user, nil
}

// ListDir lists the entries of a directory in the repository.
// An absent directory surfaces as ErrNotFound; callers that treat
// "no content yet" as a valid state recover it locally.
func (c *Client) ListDir(ctx context.Context, dir string) ([]Entry, error) {
	var entries []Entry
	if err := c.do(ctx, http.MethodGet, c.contentsEndpoint(dir), nil, &entries); err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	return entries, nil
}

// GetFile fetches a single file with its transport-encoded content and
// version token. Always goes through the API rather than a raw URL so the
// response cannot be stale behind CDN caching.
func (c *Client) GetFile(ctx context.Context, repoPath string) (*File, error) {
	var file File
	if err := c.do(ctx, http.MethodGet, c.contentsEndpoint(repoPath), nil, &file); err != nil {
		return nil, fmt.Errorf("fetching %s: %w", repoPath, err)
	}

	return &file, nil
}

// putResponse is the subset of the contents-API write response we need:
// the new version token of the written file.
type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// PutFile creates or updates a file and returns its new version token.
func (c *Client) PutFile(ctx context.Context, repoPath string, req PutRequest) (string, error) {
	var resp putResponse
	if err := c.do(ctx, http.MethodPut, c.contentsEndpoint(repoPath), req, &resp); err != nil {
		return "", fmt.Errorf("writing %s: %w", repoPath, err)
	}

	return resp.Content.SHA, nil
}

// DeleteFile removes a file at the version identified by req.SHA.
func (c *Client) DeleteFile(ctx context.Context, repoPath string, req DeleteRequest) error {
	if err := c.do(ctx, http.MethodDelete, c.contentsEndpoint(repoPath), req, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", repoPath, err)
	}

	return nil
}

// DecodeContent recovers the original text from a transport-encoded file.
// The API embeds newlines in the base64 payload; they are stripped before
// decoding. Decoding to bytes first keeps multi-byte text intact.
func DecodeContent(f *File) (string, error) {
	if f.Encoding != "" && f.Encoding != "base64" {
		return "", fmt.Errorf("unsupported content encoding %q for %s", f.Encoding, f.Path)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(f.Content, "\n", ""))
	if err != nil {
		return "", fmt.Errorf("decoding content of %s: %w", f.Path, err)
	}

	return string(raw), nil
}

// EncodeContent encodes text for the contents-API transport.
func EncodeContent(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}
