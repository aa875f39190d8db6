package e2e_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/syrthax/blogsync/github"
	"github.com/syrthax/blogsync/internal/blog"
	"github.com/syrthax/blogsync/internal/mcpserver"
	"github.com/syrthax/blogsync/internal/session"
)

const (
	testOwner = "syrthax"
	testRepo  = "blog"
	testLogin = "syrthax"
	testToken = "e2e-test-token"
)

// githubFake is an in-memory stand-in for the GitHub API: /user plus the
// repository contents endpoints with SHA version checks.
type githubFake struct {
	mu    sync.Mutex
	files map[string]string
	shas  map[string]string
	seq   int
}

func newGithubFake() *githubFake {
	return &githubFake{files: map[string]string{}, shas: map[string]string{}}
}

func (g *githubFake) seed(relPath, content string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	g.files[relPath] = content
	g.shas[relPath] = fmt.Sprintf("sha-%d", g.seq)
}

func (g *githubFake) has(relPath string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.files[relPath]

	return ok
}

func (g *githubFake) content(relPath string) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.files[relPath]
}

func (g *githubFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+testToken {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Bad credentials"}`))

		return
	}

	if r.URL.Path == "/user" {
		json.NewEncoder(w).Encode(github.User{Login: testLogin, Name: "Syr Thax"})

		return
	}

	prefix := fmt.Sprintf("/repos/%s/%s/contents/", testOwner, testRepo)
	rel := strings.TrimPrefix(r.URL.Path, prefix)

	switch r.Method {
	case http.MethodGet:
		if content, ok := g.files[rel]; ok {
			json.NewEncoder(w).Encode(github.File{
				Name:     path.Base(rel),
				Path:     rel,
				SHA:      g.shas[rel],
				Content:  base64.StdEncoding.EncodeToString([]byte(content)),
				Encoding: "base64",
			})

			return
		}

		var entries []github.Entry
		for p := range g.files {
			if strings.HasPrefix(p, rel+"/") {
				entries = append(entries, github.Entry{Name: path.Base(p), Path: p, Type: "file", SHA: g.shas[p]})
			}
		}

		if len(entries) == 0 {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))

			return
		}

		json.NewEncoder(w).Encode(entries)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)

		var req github.PutRequest
		json.Unmarshal(body, &req)

		if sha, exists := g.shas[rel]; exists && req.SHA != sha {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"does not match"}`))

			return
		}

		decoded, _ := base64.StdEncoding.DecodeString(req.Content)
		g.seq++
		g.files[rel] = string(decoded)
		g.shas[rel] = fmt.Sprintf("sha-%d", g.seq)
		fmt.Fprintf(w, `{"content":{"sha":"%s"}}`, g.shas[rel])
	case http.MethodDelete:
		if _, ok := g.files[rel]; !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))

			return
		}

		delete(g.files, rel)
		delete(g.shas, rel)
		w.Write([]byte(`{}`))
	}
}

// harness holds the full e2e stack: a fake GitHub API, an authenticated
// session and store, and an MCP server behind a streamable HTTP handler.
type harness struct {
	URL    string
	Repo   *githubFake
	Client *github.Client
	Store  *blog.Store
}

// newHarness seeds the fake repository, establishes a session against it,
// and starts an httptest server for the MCP streamable HTTP handler.
func newHarness(t *testing.T) *harness {
	t.Helper()

	repo := newGithubFake()
	repo.seed("posts/2024-03-10-hello-world.md", blog.RenderPost("Hello World", "2024-03-10", "First post."))

	apiServer := httptest.NewServer(repo)
	t.Cleanup(apiServer.Close)

	client := github.NewClient(apiServer.Client(), testToken, testOwner, testRepo)
	client.SetBaseURL(apiServer.URL)

	sess, err := session.Establish(context.Background(), client, testLogin)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := blog.NewStore(client, sess, "posts", "posts.json", logger)

	mcpServer := mcp.NewServer(
		&mcp.Implementation{Name: "blogsync-e2e", Version: "test"},
		nil,
	)
	mcpserver.RegisterTools(mcpServer, store)

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return mcpServer
	}, nil)

	mcpHTTP := httptest.NewServer(handler)
	t.Cleanup(mcpHTTP.Close)

	return &harness{
		URL:    mcpHTTP.URL,
		Repo:   repo,
		Client: client,
		Store:  store,
	}
}

// mcpSession creates a connected MCP client session over streamable HTTP.
func (h *harness) mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()

	transport := &mcp.StreamableClientTransport{
		Endpoint:             h.URL,
		DisableStandaloneSSE: true,
	}

	client := mcp.NewClient(
		&mcp.Implementation{Name: "e2e-test-client", Version: "test"},
		nil,
	)

	session, err := client.Connect(t.Context(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

// callTool invokes a tool and requires transport-level success.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()

	result, err := session.CallTool(t.Context(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)

	return result
}

// extractTextContent returns the first text content of a tool result.
func extractTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "first content is not TextContent")

	return tc.Text
}
