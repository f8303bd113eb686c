package labelcheck

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const reviewSchema = `
CREATE TABLE IF NOT EXISTS reviews (
	id             TEXT PRIMARY KEY,
	text           TEXT NOT NULL,
	assigned       TEXT NOT NULL,
	cluster        TEXT NOT NULL,
	assigned_score REAL NOT NULL,
	suspect        INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS candidates (
	review_id TEXT NOT NULL REFERENCES reviews(id),
	rank      INTEGER NOT NULL,
	label     TEXT NOT NULL,
	score     REAL NOT NULL,
	PRIMARY KEY (review_id, rank)
);`

// SaveReviewsSQLite writes reviews into the SQLite database at path,
// replacing the previous run's rows in a single transaction.
func SaveReviewsSQLite(ctx context.Context, path string, reviews []Review) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, reviewSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates`); err != nil {
		return fmt.Errorf("clear candidates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reviews`); err != nil {
		return fmt.Errorf("clear reviews: %w", err)
	}
	reviewStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO reviews (id, text, assigned, cluster, assigned_score, suspect) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare reviews: %w", err)
	}
	defer reviewStmt.Close()
	candStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO candidates (review_id, rank, label, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare candidates: %w", err)
	}
	defer candStmt.Close()

	for _, r := range reviews {
		suspect := 0
		if r.Suspect {
			suspect = 1
		}
		if _, err := reviewStmt.ExecContext(ctx, r.ID, r.Text, joinLabelIDs(r.Assigned),
			joinLabelIDs(r.Clusters), r.AssignedScore, suspect); err != nil {
			return fmt.Errorf("insert review %s: %w", r.ID, err)
		}
		for rank, c := range r.Candidates {
			if _, err := candStmt.ExecContext(ctx, r.ID, rank+1, c.ID, c.Score); err != nil {
				return fmt.Errorf("insert candidate %s/%s: %w", r.ID, c.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
