package models

import "time"

// StoredFile is the bookkeeping row for an uploaded capture file. Deletion is
// soft: the row stays with Deleted=true after the disk file is removed.
type StoredFile struct {
	ID        string    `db:"id" json:"id"`
	Path      string    `db:"path" json:"path"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Deleted   bool      `db:"deleted" json:"deleted"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
