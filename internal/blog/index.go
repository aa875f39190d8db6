package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/syrthax/blogsync/github"
	errs "github.com/syrthax/blogsync/internal/errors"
	"github.com/syrthax/blogsync/internal/session"
)

// Record is one entry in the listing aggregate consumed by the public
// pages: enough to render a list and link to the post without fetching it.
type Record struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
	Date  string `json:"date"`
	File  string `json:"file"`
}

// Action selects what a Sync call does to the aggregate.
type Action string

const (
	ActionUpsert Action = "upsert"
	ActionDelete Action = "delete"
)

// Index maintains the denormalized aggregate that mirrors the post set.
// It is rebuilt by filename-keyed upsert rather than diffing, so a stale
// or missing entry self-heals on the next save of the same post.
type Index struct {
	client *github.Client
	path   string
	sess   *session.Session
	logger *slog.Logger
}

// NewIndex creates an Index stored at the given repository path.
func NewIndex(client *github.Client, path string, sess *session.Session, logger *slog.Logger) *Index {
	return &Index{
		client: client,
		path:   path,
		sess:   sess,
		logger: logger,
	}
}

// Sync brings the aggregate in line with a single post write or delete.
// The returned error is diagnostic only: by the time Sync runs the post
// itself is already durably written or removed, so callers log the
// failure and report overall success regardless.
func (ix *Index) Sync(ctx context.Context, action Action, filename, title, date string) error {
	records, sha, err := ix.load(ctx)
	if err != nil {
		return err
	}

	switch action {
	case ActionUpsert:
		// Removing any record with the same filename first makes the
		// upsert idempotent and handles renames.
		records = removeRecord(records, filename)
		records = append([]Record{{
			Title: title,
			Slug:  Slug(filename),
			Date:  date,
			File:  filename,
		}}, records...)
		sortRecords(records)
	case ActionDelete:
		records = removeRecord(records, filename)
	default:
		return fmt.Errorf("unknown index action %q", action)
	}

	return ix.write(ctx, action, filename, records, sha)
}

// load fetches the current aggregate and its version token. An absent
// aggregate is a valid empty state: no records, no token, and the
// subsequent write becomes a create.
func (ix *Index) load(ctx context.Context) ([]Record, string, error) {
	file, err := ix.client.GetFile(ctx, ix.path)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, "", nil
		}

		return nil, "", fmt.Errorf("fetching index: %w", err)
	}

	text, err := github.DecodeContent(file)
	if err != nil {
		return nil, "", fmt.Errorf("decoding index: %w", err)
	}

	var records []Record
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, "", fmt.Errorf("parsing index: %w", err)
	}

	return records, file.SHA, nil
}

func (ix *Index) write(ctx context.Context, action Action, filename string, records []Record, sha string) error {
	if records == nil {
		records = []Record{} // deleting the last post must leave [], not null
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}

	_, err = ix.client.PutFile(ctx, ix.path, github.PutRequest{
		Message:   fmt.Sprintf("Sync %s: %s %s", ix.path, action, filename),
		Content:   github.EncodeContent(string(data) + "\n"),
		Committer: ix.sess.Committer(),
		SHA:       sha,
	})
	if err != nil {
		return fmt.Errorf("writing index: %w", err)
	}

	ix.logger.Debug("index synced",
		slog.String("action", string(action)),
		slog.String("file", filename),
		slog.Int("records", len(records)),
	)

	return nil
}

func removeRecord(records []Record, filename string) []Record {
	kept := records[:0]
	for _, r := range records {
		if r.File != filename {
			kept = append(kept, r)
		}
	}

	return kept
}

// sortRecords orders newest first by calendar day. Records with dates
// that do not parse sort after all dated ones; ties keep their order.
func sortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		di, iok := parseDay(records[i].Date)
		dj, jok := parseDay(records[j].Date)

		switch {
		case iok && !jok:
			return true
		case !iok:
			return false
		default:
			return di.After(dj)
		}
	})
}
