package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"newsreel/internal/config"
)

// Store manages run and story persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.StorePath())
}

// OpenPath connects to the database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// NewRun inserts a pending run for the given stories.
func (s *Store) NewRun(ctx context.Context, mode string, storyIDs []string) (*Run, error) {
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (
            id, mode, status, story_ids, degraded, created_at, updated_at
        ) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id,
		mode,
		StatusPending,
		nullableString(encodeStrings(storyIDs)),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return s.GetRun(ctx, id)
}

// GetRun fetches a run by identifier. Returns nil when not found.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// UpdateRun persists changes to an existing run.
func (s *Store) UpdateRun(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	run.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET mode = ?, status = ?, story_ids = ?, degraded = ?, attempts_json = ?,
             final_file = ?, failure_stage = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		run.Mode,
		run.Status,
		nullableString(encodeStrings(run.StoryIDs)),
		boolToInt(run.Degraded),
		nullableString(run.AttemptsJSON),
		nullableString(run.FinalFile),
		nullableString(run.FailureStage),
		nullableString(run.ErrorMessage),
		run.UpdatedAt.Format(time.RFC3339Nano),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// ListRuns returns runs filtered by status set (or all runs when no status
// is provided), newest first.
func (s *Store) ListRuns(ctx context.Context, statuses ...Status) ([]*Run, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + runColumns + ` FROM runs`
	orderClause := ` ORDER BY created_at DESC`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpsertStory inserts or replaces a story document.
func (s *Store) UpsertStory(ctx context.Context, story *Story) error {
	if story == nil {
		return errors.New("story is nil")
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO stories (id, headline, article_text, image_paths, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             headline = excluded.headline,
             article_text = excluded.article_text,
             image_paths = excluded.image_paths,
             updated_at = excluded.updated_at`,
		story.ID,
		nullableString(story.Headline),
		nullableString(story.ArticleText),
		nullableString(encodeStrings(story.ImagePaths)),
		story.CreatedAt.Format(time.RFC3339Nano),
		story.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert story: %w", err)
	}
	return nil
}

// GetStory fetches a story by identifier. Returns nil when not found.
func (s *Store) GetStory(ctx context.Context, id string) (*Story, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+storyColumns+` FROM stories WHERE id = ?`, id)
	story, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get story: %w", err)
	}
	return story, nil
}

// ListStories returns all stories ordered by creation time.
func (s *Store) ListStories(ctx context.Context) ([]*Story, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+storyColumns+` FROM stories ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	var stories []*Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, story)
	}
	return stories, rows.Err()
}

const runColumns = "id, mode, status, story_ids, degraded, attempts_json, final_file, failure_stage, error_message, created_at, updated_at"

const storyColumns = "id, headline, article_text, image_paths, created_at, updated_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id           string
		mode         string
		statusStr    string
		storyIDs     sql.NullString
		degraded     sql.NullInt64
		attempts     sql.NullString
		finalFile    sql.NullString
		failureStage sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&mode,
		&statusStr,
		&storyIDs,
		&degraded,
		&attempts,
		&finalFile,
		&failureStage,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Mode:         mode,
		Status:       Status(statusStr),
		StoryIDs:     decodeStrings(storyIDs.String),
		AttemptsJSON: attempts.String,
		FinalFile:    finalFile.String,
		FailureStage: failureStage.String,
		ErrorMessage: errorMessage.String,
	}
	if degraded.Valid {
		run.Degraded = degraded.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		run.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		run.UpdatedAt = updated
	}
	return run, nil
}

func scanStory(scanner interface{ Scan(dest ...any) error }) (*Story, error) {
	var (
		id         string
		headline   sql.NullString
		article    sql.NullString
		imagePaths sql.NullString
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)

	if err := scanner.Scan(&id, &headline, &article, &imagePaths, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	story := &Story{
		ID:          id,
		Headline:    headline.String,
		ArticleText: article.String,
		ImagePaths:  decodeStrings(imagePaths.String),
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		story.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		story.UpdatedAt = updated
	}
	return story, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
