package blog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/syrthax/blogsync/github"
	errs "github.com/syrthax/blogsync/internal/errors"
	"github.com/syrthax/blogsync/internal/session"
)

// Post is one blog post loaded from the repository. Version is the store's
// opaque version token; it authorizes the next update or delete and is
// refreshed after every successful write.
type Post struct {
	Filename string
	Version  string
	Title    string
	Date     string
	Body     string
}

// SaveResult reports the outcome of a save. IndexSynced is false when the
// post was written but the aggregate update failed; the index catches up
// on the next successful save or delete of the same post.
type SaveResult struct {
	Post        Post
	Created     bool
	IndexSynced bool
}

// Store performs versioned reads and writes of post files and keeps the
// listing aggregate in step with every mutation.
type Store struct {
	client *github.Client
	dir    string
	index  *Index
	sess   *session.Session
	logger *slog.Logger
}

// NewStore creates a Store rooted at the posts directory, with its
// aggregate at indexPath.
func NewStore(client *github.Client, sess *session.Session, dir, indexPath string, logger *slog.Logger) *Store {
	return &Store{
		client: client,
		dir:    dir,
		index:  NewIndex(client, indexPath, sess, logger),
		sess:   sess,
		logger: logger,
	}
}

// List returns the filenames of all markdown posts. An absent posts
// directory means there are no posts yet, which is a valid empty state,
// not an error.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := s.client.ListDir(ctx, s.dir)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("listing posts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".md") {
			names = append(names, e.Name)
		}
	}

	return names, nil
}

// Fetch loads and parses a single post, including its version token.
func (s *Store) Fetch(ctx context.Context, filename string) (*Post, error) {
	file, err := s.client.GetFile(ctx, path.Join(s.dir, filename))
	if err != nil {
		return nil, err
	}

	text, err := github.DecodeContent(file)
	if err != nil {
		return nil, err
	}

	pc := ParsePost(text)

	return &Post{
		Filename: filename,
		Version:  file.SHA,
		Title:    pc.Title,
		Date:     pc.Date,
		Body:     pc.Body,
	}, nil
}

// Save validates the draft and writes it to the store. A nil existing
// post means create: the filename is derived from the title and date, and
// no version token is sent, so a create against an existing key fails
// with a conflict instead of overwriting it. A non-nil existing post
// keeps its filename and must carry the token from its last read.
//
// The post write is phase one and must succeed. The index update is phase
// two and best-effort: its failure is logged and reflected in
// SaveResult.IndexSynced, never returned as the operation's error.
func (s *Store) Save(ctx context.Context, draft Draft, existing *Post) (*SaveResult, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	var filename, sha, message string

	if existing == nil {
		filename = Filename(draft.Title, draft.Date)
		message = "Add post: " + draft.Title
	} else {
		if existing.Version == "" {
			return nil, fmt.Errorf("updating %s: %w", existing.Filename, errs.ErrMissingVersion)
		}

		filename = existing.Filename
		sha = existing.Version
		message = "Update post: " + draft.Title
	}

	raw := RenderPost(draft.Title, draft.Date, draft.Body)

	newSHA, err := s.client.PutFile(ctx, path.Join(s.dir, filename), github.PutRequest{
		Message:   message,
		Content:   github.EncodeContent(raw),
		Committer: s.sess.Committer(),
		SHA:       sha,
	})
	if err != nil {
		return nil, err
	}

	result := &SaveResult{
		Post: Post{
			Filename: filename,
			Version:  newSHA,
			Title:    draft.Title,
			Date:     draft.Date,
			Body:     draft.Body,
		},
		Created:     existing == nil,
		IndexSynced: true,
	}

	if err := s.index.Sync(ctx, ActionUpsert, filename, draft.Title, draft.Date); err != nil {
		s.logger.Warn("index sync failed, post saved anyway",
			slog.String("file", filename),
			slog.String("error", err.Error()),
		)
		result.IndexSynced = false
	}

	return result, nil
}

// Delete removes a post. The version token is mandatory and checked
// before any network interaction. The index update that follows is
// best-effort, like in Save.
func (s *Store) Delete(ctx context.Context, post *Post) error {
	if post.Version == "" {
		return fmt.Errorf("deleting %s: %w", post.Filename, errs.ErrMissingVersion)
	}

	err := s.client.DeleteFile(ctx, path.Join(s.dir, post.Filename), github.DeleteRequest{
		Message:   "Delete post: " + post.Title,
		SHA:       post.Version,
		Committer: s.sess.Committer(),
	})
	if err != nil {
		return err
	}

	if err := s.index.Sync(ctx, ActionDelete, post.Filename, "", ""); err != nil {
		s.logger.Warn("index sync failed, post deleted anyway",
			slog.String("file", post.Filename),
			slog.String("error", err.Error()),
		)
	}

	return nil
}
