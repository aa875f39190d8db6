package blog

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/syrthax/blogsync/github"
	"github.com/syrthax/blogsync/internal/session"
)

// fakeRepo is an in-memory versioned content store speaking just enough of
// the contents API for the engine: directory listings, file reads with
// version tokens, and optimistic writes/deletes that enforce them.
type fakeRepo struct {
	mu       sync.Mutex
	files    map[string]*fakeFile // repo path -> file
	user     github.User
	seq      int
	failGet  map[string]int // repo path -> status forced on GET
	requests int
	puts     int
	deletes  int
}

type fakeFile struct {
	content string
	sha     string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		files:   map[string]*fakeFile{},
		failGet: map[string]int{},
		user:    github.User{Login: "syrthax", Name: "Syr Thax", Email: "s@example.com"},
	}
}

// seed stores a file directly, bypassing version checks, and returns its
// version token.
func (f *fakeRepo) seed(repoPath, content string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	sha := fmt.Sprintf("sha-%d", f.seq)
	f.files[repoPath] = &fakeFile{content: content, sha: sha}

	return sha
}

func (f *fakeRepo) get(repoPath string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[repoPath]
	if !ok {
		return "", false
	}

	return file.content, true
}

func (f *fakeRepo) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if r.URL.Path == "/user" {
		json.NewEncoder(w).Encode(f.user)
		return
	}

	rel, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/repos/syrthax/blog/contents/"))
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		f.handleGet(w, rel)
	case http.MethodPut:
		f.handlePut(w, r, rel)
	case http.MethodDelete:
		f.handleDelete(w, r, rel)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeRepo) handleGet(w http.ResponseWriter, rel string) {
	if status, ok := f.failGet[rel]; ok {
		w.WriteHeader(status)
		w.Write([]byte(`{"message":"forced failure"}`))

		return
	}

	if file, ok := f.files[rel]; ok {
		json.NewEncoder(w).Encode(github.File{
			Name:     path.Base(rel),
			Path:     rel,
			SHA:      file.sha,
			Content:  base64.StdEncoding.EncodeToString([]byte(file.content)),
			Encoding: "base64",
		})

		return
	}

	var entries []github.Entry
	for p, file := range f.files {
		child := strings.TrimPrefix(p, rel+"/")
		if child != p && !strings.Contains(child, "/") {
			entries = append(entries, github.Entry{Name: child, Path: p, Type: "file", SHA: file.sha})
		}
	}

	if len(entries) == 0 {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))

		return
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	json.NewEncoder(w).Encode(entries)
}

func (f *fakeRepo) handlePut(w http.ResponseWriter, r *http.Request, rel string) {
	f.puts++

	body, _ := io.ReadAll(r.Body)

	var req github.PutRequest
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	existing := f.files[rel]

	switch {
	case existing != nil && req.SHA == "":
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"\"sha\" wasn't supplied"}`))

		return
	case existing != nil && req.SHA != existing.sha:
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(fmt.Sprintf(`{"message":"%s does not match"}`, rel)))

		return
	case existing == nil && req.SHA != "":
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"sha supplied for new file"}`))

		return
	}

	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.seq++
	sha := fmt.Sprintf("sha-%d", f.seq)
	f.files[rel] = &fakeFile{content: string(content), sha: sha}

	status := http.StatusOK
	if existing == nil {
		status = http.StatusCreated
	}

	w.WriteHeader(status)
	fmt.Fprintf(w, `{"content":{"sha":"%s"}}`, sha)
}

func (f *fakeRepo) handleDelete(w http.ResponseWriter, r *http.Request, rel string) {
	f.deletes++

	body, _ := io.ReadAll(r.Body)

	var req github.DeleteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	existing := f.files[rel]
	if existing == nil {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))

		return
	}

	if req.SHA != existing.sha {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(fmt.Sprintf(`{"message":"%s does not match"}`, rel)))

		return
	}

	delete(f.files, rel)
	w.Write([]byte(`{}`))
}

// newTestStore wires a Store to a fakeRepo over a real HTTP round trip.
func newTestStore(t *testing.T, repo *fakeRepo) *Store {
	t.Helper()

	srv := httptest.NewServer(repo)
	t.Cleanup(srv.Close)

	client := github.NewClient(srv.Client(), "tok_test", "syrthax", "blog")
	client.SetBaseURL(srv.URL)

	sess := &session.Session{User: repo.user}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewStore(client, sess, "posts", "posts.json", logger)
}
