package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"molequeue/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
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

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NewJob persists a submission and assigns its process-wide identifier. The
// returned job carries StatusAccepted; the caller communicates the identifier
// to the client before the queue ever sees the job.
func (s *Store) NewJob(ctx context.Context, spec Spec) (*Job, error) {
	spec = spec.Normalize()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	var argumentsJSON any
	if len(spec.Arguments) > 0 {
		encoded, err := json.Marshal(spec.Arguments)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
		argumentsJSON = string(encoded)
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            queue_name, program, arguments_json, description, fingerprint,
            status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		spec.Queue,
		nullableString(spec.Program),
		argumentsJSON,
		nullableString(spec.Description),
		nullableString(spec.Fingerprint()),
		StatusAccepted,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. An absent job yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByFingerprint returns the first job matching a content fingerprint.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE fingerprint = ? ORDER BY id LIMIT 1`,
		fingerprint,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by fingerprint: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()

	var argumentsJSON any
	if len(job.Arguments) > 0 {
		encoded, err := json.Marshal(job.Arguments)
		if err != nil {
			return fmt.Errorf("marshal arguments: %w", err)
		}
		argumentsJSON = string(encoded)
	}

	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET queue_name = ?, program = ?, arguments_json = ?, description = ?,
             fingerprint = ?, status = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		job.QueueName,
		nullableString(job.Program),
		argumentsJSON,
		nullableString(job.Description),
		nullableString(job.Fingerprint),
		job.Status,
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// SetStatus transitions a job's status. The update is a single statement so
// concurrent lookups never observe a partial write.
func (s *Store) SetStatus(ctx context.Context, id int64, status Status) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

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
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}

// CountActive returns the number of jobs occupying capacity on a queue.
func (s *Store) CountActive(ctx context.Context, queueName string) (int, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COUNT(1) FROM jobs WHERE queue_name = ? AND status IN (?, ?, ?)`,
		queueName,
		StatusAccepted,
		StatusQueued,
		StatusRunning,
	)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count active jobs: %w", err)
	}
	return count, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Clear removes all jobs from the store.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, queue_name, program, arguments_json, description, fingerprint, status, error_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            int64
		queueName     string
		program       sql.NullString
		argumentsJSON sql.NullString
		description   sql.NullString
		fingerprint   sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&queueName,
		&program,
		&argumentsJSON,
		&description,
		&fingerprint,
		&statusStr,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		QueueName:    queueName,
		Program:      program.String,
		Description:  description.String,
		Fingerprint:  fingerprint.String,
		Status:       Status(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if argumentsJSON.Valid && argumentsJSON.String != "" {
		if err := json.Unmarshal([]byte(argumentsJSON.String), &job.Arguments); err != nil {
			return nil, fmt.Errorf("decode job arguments: %w", err)
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
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
