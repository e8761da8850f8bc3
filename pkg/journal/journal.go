// Package journal persists completed scene descriptions and
// navigation runs. Entries live in a JSON file under the user's home
// directory and can optionally be synced to Google Docs.
package journal

import (
	"time"

	"github.com/irislabs/go-iris/pkg/navigate"
)

// Kind distinguishes what produced an entry.
type Kind string

const (
	// KindScene is a completed live scene-description session.
	KindScene Kind = "scene"

	// KindNavigation is a finished guided walk.
	KindNavigation Kind = "navigation"
)

// SyncStatus tracks Google Docs sync state for an entry.
type SyncStatus string

const (
	SyncLocal  SyncStatus = "local"
	SyncSynced SyncStatus = "synced"
	SyncError  SyncStatus = "error"
)

// Entry is one journal record.
type Entry struct {
	// ID is a uuid assigned on save.
	ID string `json:"id"`

	// Kind says whether this was a scene session or a walk.
	Kind Kind `json:"kind"`

	// Transcript is the accumulated session transcript (scene) or the
	// sequence of spoken instructions (navigation).
	Transcript string `json:"transcript"`

	// Destination is set for navigation entries.
	Destination string `json:"destination,omitempty"`

	// Position is the last known fix, if any.
	Position *navigate.Position `json:"position,omitempty"`

	// GoogleDocID is set once the entry has been synced.
	GoogleDocID string `json:"google_doc_id,omitempty"`

	// Sync is the Google Docs sync state.
	Sync SyncStatus `json:"sync"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Title returns a human-readable heading for the entry.
func (e *Entry) Title() string {
	stamp := e.CreatedAt.Format("Jan 2, 2006 3:04 PM")
	if e.Kind == KindNavigation {
		return "Walk to " + e.Destination + " (" + stamp + ")"
	}
	return "Scene session (" + stamp + ")"
}

// MarkSynced records a successful Google Docs sync.
func (e *Entry) MarkSynced(docID string) {
	e.GoogleDocID = docID
	e.Sync = SyncSynced
	e.UpdatedAt = time.Now()
}

// MarkSyncError records a failed sync attempt.
func (e *Entry) MarkSyncError() {
	e.Sync = SyncError
	e.UpdatedAt = time.Now()
}
