// Package history records finished download sessions in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/streamgrab/streamgrab/internal/session"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    source_url TEXT NOT NULL,
    output_name TEXT NOT NULL,
    state TEXT NOT NULL,
    message TEXT NOT NULL DEFAULT '',
    audio_only BOOLEAN NOT NULL DEFAULT 0 CHECK (audio_only IN (0, 1)),
    video_track TEXT NOT NULL DEFAULT '',
    audio_track TEXT NOT NULL DEFAULT '',
    subtitle_track TEXT NOT NULL DEFAULT '',
    output_path TEXT NOT NULL DEFAULT '',
    media_type TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    started_at INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_finished ON sessions (finished_at);
`

// Entry is one recorded session.
type Entry struct {
	ID            string
	SourceURL     string
	OutputName    string
	State         string
	Message       string
	AudioOnly     bool
	VideoTrack    string
	AudioTrack    string
	SubtitleTrack string
	OutputPath    string
	MediaType     string
	Size          int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the wall time between start and finish.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store is a session history database. It satisfies session.Recorder.
type Store struct {
	db  *sql.DB
	log *logrus.Entry
}

var _ session.Recorder = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return &Store{db: db, log: logrus.WithField("component", "history")}, nil
}

// DefaultPath returns the history database location inside stateDir.
func DefaultPath(stateDir string) string {
	return filepath.Join(stateDir, "history.db")
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a finished session. Completed sessions are matched with
// their output file in the save directory.
func (s *Store) Record(o session.Outcome) error {
	e := Entry{
		ID:         o.SessionID,
		SourceURL:  o.SourceURL,
		OutputName: o.Request.OutputName,
		State:      o.State.String(),
		Message:    o.Message,
		AudioOnly:  o.Request.AudioOnly,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if t := o.Request.SelectedVideo; t != nil {
		e.VideoTrack = t.ID
	}
	if t := o.Request.SelectedAudio; t != nil {
		e.AudioTrack = t.ID
	}
	if t := o.Request.SelectedSubtitle; t != nil {
		e.SubtitleTrack = t.ID
	}
	if o.State == session.StateComplete {
		if out, ok := DetectOutput(o.SaveDir, o.Request.OutputName); ok {
			e.OutputPath, e.MediaType, e.Size = out.Path, out.MediaType, out.Size
		} else {
			s.log.WithField("session", o.SessionID).Debugf("no output file for %q in %s", o.Request.OutputName, o.SaveDir)
		}
	}
	return s.Insert(context.Background(), e)
}

// Insert writes e, replacing an entry with the same id.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR REPLACE INTO sessions (
            id, source_url, output_name, state, message, audio_only,
            video_track, audio_track, subtitle_track,
            output_path, media_type, size_bytes, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SourceURL, e.OutputName, e.State, e.Message, e.AudioOnly,
		e.VideoTrack, e.AudioTrack, e.SubtitleTrack,
		e.OutputPath, e.MediaType, e.Size, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", e.ID, err)
	}
	return nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, source_url, output_name, state, message, audio_only,
            video_track, audio_track, subtitle_track,
            output_path, media_type, size_bytes, started_at, finished_at
        FROM sessions ORDER BY finished_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, finished int64
		if err := rows.Scan(&e.ID, &e.SourceURL, &e.OutputName, &e.State, &e.Message, &e.AudioOnly,
			&e.VideoTrack, &e.AudioTrack, &e.SubtitleTrack,
			&e.OutputPath, &e.MediaType, &e.Size, &started, &finished); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes one entry. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// Clear removes every entry and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
