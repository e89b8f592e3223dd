package export

import (
	"fmt"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/storage"
)

// Store reads publication entities.
type Store interface {
	GetPost(id int64) (*storage.Post, error)
	ListPosts(kind string, statuses ...string) ([]storage.Post, error)
	AllMeta(postID int64) (map[string]string, error)
}

// Authors supplies ordered author names from the registry.
type Authors interface {
	AuthorNames(pubID int64) ([]string, error)
}

// LoadRecord rebuilds a publication record with its registry authors.
func LoadRecord(store Store, authors Authors, id int64) (*publication.Record, error) {
	p, err := store.GetPost(id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Kind != publication.Kind {
		return nil, fmt.Errorf("publication %d: %w", id, storage.ErrNotFound)
	}
	return loadPost(store, authors, *p)
}

// LoadRecords loads every publication in the given entity states.
func LoadRecords(store Store, authors Authors, statuses ...string) ([]publication.Record, error) {
	posts, err := store.ListPosts(publication.Kind, statuses...)
	if err != nil {
		return nil, err
	}
	recs := make([]publication.Record, 0, len(posts))
	for _, p := range posts {
		r, err := loadPost(store, authors, p)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *r)
	}
	return recs, nil
}

func loadPost(store Store, authors Authors, p storage.Post) (*publication.Record, error) {
	meta, err := store.AllMeta(p.ID)
	if err != nil {
		return nil, err
	}
	rec := publication.RecordFromMeta(p.Title, meta)
	if rec.Authors, err = authors.AuthorNames(p.ID); err != nil {
		return nil, err
	}
	return &rec, nil
}
