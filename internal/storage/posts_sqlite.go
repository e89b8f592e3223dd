package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Post is a stored entity.
type Post struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const selectPostFields = `id, kind, title, slug, status, created_at, updated_at`

// CreatePost inserts a new post and returns its ID. An empty slug is
// derived from the title.
func (d *DB) CreatePost(p Post) (int64, error) {
	if p.Kind == "" {
		return 0, fmt.Errorf("creating post: kind is required")
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	ts := d.now().UTC().Unix()

	res, err := d.db.Exec(`
		INSERT INTO posts (kind, title, slug, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Kind, p.Title, p.Slug, p.Status, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("inserting post: %w", err)
	}
	return res.LastInsertId()
}

// GetPost retrieves a post by ID. Returns nil, nil if not found.
func (d *DB) GetPost(id int64) (*Post, error) {
	row := d.db.QueryRow(`SELECT `+selectPostFields+` FROM posts WHERE id = ?`, id)
	return scanPost(row)
}

// UpdatePost overwrites title, slug and status of an existing post.
func (d *DB) UpdatePost(p Post) error {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	res, err := d.db.Exec(`
		UPDATE posts SET title = ?, slug = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, p.Title, p.Slug, p.Status, d.now().UTC().Unix(), p.ID)
	if err != nil {
		return fmt.Errorf("updating post %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("updating post %d: %w", p.ID, ErrNotFound)
	}
	return nil
}

// DeletePost removes a post together with its attributes and term
// assignments. Returns ErrNotFound if the post does not exist.
func (d *DB) DeletePost(id int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("deleting post %d: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec(`DELETE FROM post_meta WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("deleting meta of post %d: %w", id, err)
	}
	if _, err := tx.Exec(`DELETE FROM term_relationships WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("deleting terms of post %d: %w", id, err)
	}
	return tx.Commit()
}

// ListPosts returns posts of a kind, restricted to the given statuses when
// any are provided, ordered by ID.
func (d *DB) ListPosts(kind string, statuses ...string) ([]Post, error) {
	query := `SELECT ` + selectPostFields + ` FROM posts WHERE kind = ?`
	args := []interface{}{kind}
	query, args = withStatuses(query, args, statuses)
	query += ` ORDER BY id`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s posts: %w", kind, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// FindPostsByTitle returns posts of a kind whose trimmed title equals the
// trimmed title given.
func (d *DB) FindPostsByTitle(kind, title string, statuses ...string) ([]Post, error) {
	query := `SELECT ` + selectPostFields + ` FROM posts WHERE kind = ? AND TRIM(title) = ?`
	args := []interface{}{kind, strings.TrimSpace(title)}
	query, args = withStatuses(query, args, statuses)
	query += ` ORDER BY id`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("finding %s posts by title: %w", kind, err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

// CountPosts returns the number of posts of a kind.
func (d *DB) CountPosts(kind string, statuses ...string) (int, error) {
	query := `SELECT COUNT(*) FROM posts WHERE kind = ?`
	args := []interface{}{kind}
	query, args = withStatuses(query, args, statuses)

	var count int
	err := d.db.QueryRow(query, args...).Scan(&count)
	return count, err
}

func withStatuses(query string, args []interface{}, statuses []string) (string, []interface{}) {
	if len(statuses) == 0 {
		return query, args
	}
	query += ` AND status IN (` + placeholders(len(statuses)) + `)`
	for _, s := range statuses {
		args = append(args, s)
	}
	return query, args
}

func scanPost(s scanner) (*Post, error) {
	var p Post
	var created, updated int64
	err := s.Scan(&p.ID, &p.Kind, &p.Title, &p.Slug, &p.Status, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.CreatedAt = time.Unix(created, 0).UTC()
	p.UpdatedAt = time.Unix(updated, 0).UTC()
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]Post, error) {
	var posts []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
