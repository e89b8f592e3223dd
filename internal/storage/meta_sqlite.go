package storage

import (
	"database/sql"
	"fmt"
)

// MetaEntry is one attribute value attached to a post.
type MetaEntry struct {
	PostID int64
	Key    string
	Value  string
}

// GetMeta returns the first value stored under key, or "" if none.
func (d *DB) GetMeta(postID int64, key string) (string, error) {
	var v string
	err := d.db.QueryRow(`
		SELECT meta_value FROM post_meta
		WHERE post_id = ? AND meta_key = ?
		ORDER BY meta_id LIMIT 1
	`, postID, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s of post %d: %w", key, postID, err)
	}
	return v, nil
}

// GetMetaValues returns every value stored under key in insertion order.
func (d *DB) GetMetaValues(postID int64, key string) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT meta_value FROM post_meta
		WHERE post_id = ? AND meta_key = ?
		ORDER BY meta_id
	`, postID, key)
	if err != nil {
		return nil, fmt.Errorf("reading %s of post %d: %w", key, postID, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// AllMeta returns the first value of every key stored on a post.
func (d *DB) AllMeta(postID int64) (map[string]string, error) {
	rows, err := d.db.Query(`
		SELECT meta_key, meta_value FROM post_meta
		WHERE post_id = ?
		ORDER BY meta_id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("reading meta of post %d: %w", postID, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		if _, seen := meta[k]; !seen {
			meta[k] = v
		}
	}
	return meta, rows.Err()
}

// UpdateMeta replaces all values under key with a single value.
func (d *DB) UpdateMeta(postID int64, key, value string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
		return fmt.Errorf("clearing %s of post %d: %w", key, postID, err)
	}
	if _, err := tx.Exec(`
		INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
	`, postID, key, value); err != nil {
		return fmt.Errorf("writing %s of post %d: %w", key, postID, err)
	}
	return tx.Commit()
}

// AddMeta appends a value under key without touching existing values.
func (d *DB) AddMeta(postID int64, key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
	`, postID, key, value)
	if err != nil {
		return fmt.Errorf("adding %s to post %d: %w", key, postID, err)
	}
	return nil
}

// DeleteMeta removes the values under key equal to value and returns the
// number removed.
func (d *DB) DeleteMeta(postID int64, key, value string) (int64, error) {
	res, err := d.db.Exec(`
		DELETE FROM post_meta WHERE post_id = ? AND meta_key = ? AND meta_value = ?
	`, postID, key, value)
	if err != nil {
		return 0, fmt.Errorf("deleting %s of post %d: %w", key, postID, err)
	}
	return res.RowsAffected()
}

// DeleteMetaKey removes every value under key and returns the number removed.
func (d *DB) DeleteMetaKey(postID int64, key string) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, key)
	if err != nil {
		return 0, fmt.Errorf("deleting %s of post %d: %w", key, postID, err)
	}
	return res.RowsAffected()
}

// HasMetaValue reports whether the post stores value under key.
func (d *DB) HasMetaValue(postID int64, key, value string) (bool, error) {
	var n int
	err := d.db.QueryRow(`
		SELECT COUNT(*) FROM post_meta
		WHERE post_id = ? AND meta_key = ? AND meta_value = ?
	`, postID, key, value).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking %s of post %d: %w", key, postID, err)
	}
	return n > 0, nil
}

// PostIDsWithMetaValue returns distinct IDs of posts storing value under key.
func (d *DB) PostIDsWithMetaValue(key, value string) ([]int64, error) {
	rows, err := d.db.Query(`
		SELECT DISTINCT post_id FROM post_meta
		WHERE meta_key = ? AND meta_value = ?
		ORDER BY post_id
	`, key, value)
	if err != nil {
		return nil, fmt.Errorf("finding posts by %s: %w", key, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// MetaByKey returns every value stored under key on posts of the given kind
// and statuses, ordered by post and insertion.
func (d *DB) MetaByKey(kind, key string, statuses ...string) ([]MetaEntry, error) {
	query := `
		SELECT m.post_id, m.meta_key, m.meta_value
		FROM post_meta m JOIN posts p ON p.id = m.post_id
		WHERE p.kind = ? AND m.meta_key = ?`
	args := []interface{}{kind, key}
	if len(statuses) > 0 {
		query += ` AND p.status IN (` + placeholders(len(statuses)) + `)`
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	query += ` ORDER BY m.post_id, m.meta_id`

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s values: %w", key, err)
	}
	defer rows.Close()

	var entries []MetaEntry
	for rows.Next() {
		var e MetaEntry
		if err := rows.Scan(&e.PostID, &e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MetaWithPrefix returns entries on a post whose key starts with prefix.
func (d *DB) MetaWithPrefix(postID int64, prefix string) ([]MetaEntry, error) {
	rows, err := d.db.Query(`
		SELECT post_id, meta_key, meta_value FROM post_meta
		WHERE post_id = ? AND substr(meta_key, 1, ?) = ?
		ORDER BY meta_id
	`, postID, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("listing %s* of post %d: %w", prefix, postID, err)
	}
	defer rows.Close()

	var entries []MetaEntry
	for rows.Next() {
		var e MetaEntry
		if err := rows.Scan(&e.PostID, &e.Key, &e.Value); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
