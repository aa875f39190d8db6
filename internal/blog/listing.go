package blog

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds the per-post fetch fan-out during a listing load.
const fetchConcurrency = 8

// LoadAll lists, fetches and parses every post and returns a fresh ordered
// collection, newest first. Each fetch runs concurrently; a post that
// fails to fetch or parse is logged and dropped without cancelling the
// rest of the batch. The caller replaces its previous collection wholesale
// with the result.
//
// Ordering is deterministic for identical input: valid dates descending,
// ties broken by filename descending, and posts whose date does not parse
// after all dated ones in their original relative order.
func (s *Store) LoadAll(ctx context.Context) ([]Post, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	fetched := make([]*Post, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, name := range names {
		g.Go(func() error {
			post, err := s.Fetch(gctx, name)
			if err != nil {
				// A cancelled batch is not a per-file failure; surface it
				// instead of returning a silently truncated listing.
				if gctx.Err() != nil {
					return gctx.Err()
				}

				// Isolated failure: drop this file, keep the batch going.
				s.logger.Warn("dropping post from listing",
					slog.String("file", name),
					slog.String("error", err.Error()),
				)

				return nil
			}

			fetched[i] = post

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	posts := make([]Post, 0, len(fetched))
	for _, p := range fetched {
		if p == nil {
			continue
		}

		if p.Filename == "" || p.Title == "" || p.Date == "" {
			s.logger.Warn("dropping malformed post from listing", slog.String("file", p.Filename))
			continue
		}

		posts = append(posts, *p)
	}

	sortPosts(posts)

	return posts, nil
}

func sortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		di, iok := parseDay(posts[i].Date)
		dj, jok := parseDay(posts[j].Date)

		switch {
		case iok && !jok:
			return true
		case !iok:
			return false
		case !di.Equal(dj):
			return di.After(dj)
		default:
			return posts[i].Filename > posts[j].Filename
		}
	})
}
