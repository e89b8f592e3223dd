package storage

import (
	"database/sql"
	"fmt"
)

// Term is a named entry in a taxonomy.
type Term struct {
	ID       int64  `json:"id"`
	Taxonomy string `json:"taxonomy"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
}

// FindTerm returns the term with the exact name. Returns nil, nil if absent.
func (d *DB) FindTerm(taxonomy, name string) (*Term, error) {
	row := d.db.QueryRow(`
		SELECT id, taxonomy, name, slug FROM terms WHERE taxonomy = ? AND name = ?
	`, taxonomy, name)
	return scanTerm(row)
}

// GetTerm returns a term by ID. Returns nil, nil if absent.
func (d *DB) GetTerm(id int64) (*Term, error) {
	row := d.db.QueryRow(`SELECT id, taxonomy, name, slug FROM terms WHERE id = ?`, id)
	return scanTerm(row)
}

// EnsureTerm returns the term with the given name, inserting it if needed.
// The unique (taxonomy, name) constraint makes concurrent callers converge
// on one term. created reports whether this call inserted it.
func (d *DB) EnsureTerm(taxonomy, name string) (term *Term, created bool, err error) {
	res, err := d.db.Exec(`
		INSERT INTO terms (taxonomy, name, slug) VALUES (?, ?, ?)
		ON CONFLICT(taxonomy, name) DO NOTHING
	`, taxonomy, name, Slugify(name))
	if err != nil {
		return nil, false, fmt.Errorf("inserting term %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	term, err = d.FindTerm(taxonomy, name)
	if err != nil {
		return nil, false, err
	}
	if term == nil {
		return nil, false, fmt.Errorf("term %q vanished after insert", name)
	}
	return term, n > 0, nil
}

// ListTerms returns all terms of a taxonomy ordered by name.
func (d *DB) ListTerms(taxonomy string) ([]Term, error) {
	rows, err := d.db.Query(`
		SELECT id, taxonomy, name, slug FROM terms WHERE taxonomy = ? ORDER BY name
	`, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("listing %s terms: %w", taxonomy, err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

// GetTermMeta returns the value under key, or "" if unset.
func (d *DB) GetTermMeta(termID int64, key string) (string, error) {
	var v string
	err := d.db.QueryRow(`
		SELECT meta_value FROM term_meta WHERE term_id = ? AND meta_key = ?
	`, termID, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s of term %d: %w", key, termID, err)
	}
	return v, nil
}

// SetTermMeta stores value under key, replacing any previous value.
func (d *DB) SetTermMeta(termID int64, key, value string) error {
	_, err := d.db.Exec(`
		INSERT INTO term_meta (term_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT(term_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value
	`, termID, key, value)
	if err != nil {
		return fmt.Errorf("writing %s of term %d: %w", key, termID, err)
	}
	return nil
}

// DeleteTermMeta removes key from a term.
func (d *DB) DeleteTermMeta(termID int64, key string) error {
	_, err := d.db.Exec(`DELETE FROM term_meta WHERE term_id = ? AND meta_key = ?`, termID, key)
	if err != nil {
		return fmt.Errorf("deleting %s of term %d: %w", key, termID, err)
	}
	return nil
}

// TermIDsWithMeta returns IDs of terms storing value under key.
func (d *DB) TermIDsWithMeta(key, value string) ([]int64, error) {
	rows, err := d.db.Query(`
		SELECT term_id FROM term_meta WHERE meta_key = ? AND meta_value = ? ORDER BY term_id
	`, key, value)
	if err != nil {
		return nil, fmt.Errorf("finding terms by %s: %w", key, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

// SetObjectTerms replaces the terms of a taxonomy assigned to a post,
// preserving the order of termIDs. Duplicate IDs keep their first position.
func (d *DB) SetObjectTerms(postID int64, taxonomy string, termIDs []int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM term_relationships
		WHERE post_id = ? AND term_id IN (SELECT id FROM terms WHERE taxonomy = ?)
	`, postID, taxonomy); err != nil {
		return fmt.Errorf("clearing %s terms of post %d: %w", taxonomy, postID, err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO term_relationships (post_id, term_id, position) VALUES (?, ?, ?)
		ON CONFLICT(post_id, term_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("preparing term insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range termIDs {
		if _, err := stmt.Exec(postID, id, i); err != nil {
			return fmt.Errorf("assigning term %d to post %d: %w", id, postID, err)
		}
	}
	return tx.Commit()
}

// ObjectTerms returns the terms of a taxonomy assigned to a post in order.
func (d *DB) ObjectTerms(postID int64, taxonomy string) ([]Term, error) {
	rows, err := d.db.Query(`
		SELECT t.id, t.taxonomy, t.name, t.slug
		FROM term_relationships r JOIN terms t ON t.id = r.term_id
		WHERE r.post_id = ? AND t.taxonomy = ?
		ORDER BY r.position
	`, postID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("listing %s terms of post %d: %w", taxonomy, postID, err)
	}
	defer rows.Close()
	return scanTerms(rows)
}

// TermObjects returns IDs of posts the term is assigned to.
func (d *DB) TermObjects(termID int64) ([]int64, error) {
	rows, err := d.db.Query(`
		SELECT post_id FROM term_relationships WHERE term_id = ? ORDER BY post_id
	`, termID)
	if err != nil {
		return nil, fmt.Errorf("listing posts of term %d: %w", termID, err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func scanTerm(s scanner) (*Term, error) {
	var t Term
	if err := s.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func scanTerms(rows *sql.Rows) ([]Term, error) {
	var terms []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, *t)
	}
	return terms, rows.Err()
}
