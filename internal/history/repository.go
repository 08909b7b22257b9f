package history

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"
)

const jobColumns = `id, guid, card, filename, state, error_message, pauses, print_duration_ms,
	created_at, started_at, ended_at, updated_at`

// jobRepository implements Repository using SQLite.
type jobRepository struct {
	db *sql.DB
}

func newJobRepository(db *sql.DB) *jobRepository {
	return &jobRepository{db: db}
}

var _ Repository = (*jobRepository)(nil)

func scanJob(scanner interface{ Scan(...any) error }) (*JobModel, error) {
	var m JobModel
	err := scanner.Scan(
		&m.ID, &m.GUID, &m.Card, &m.Filename, &m.State, &m.ErrorMessage,
		&m.Pauses, &m.PrintDurationMs,
		&m.CreatedAt, &m.StartedAt, &m.EndedAt, &m.UpdatedAt,
	)
	return &m, err
}

func (r *jobRepository) Save(job *Job) error {
	m := toJobModel(job)
	if job.ID == 0 {
		result, err := r.db.Exec(
			`INSERT INTO jobs (
				guid, card, filename, state, error_message, pauses, print_duration_ms,
				created_at, started_at, ended_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.GUID, m.Card, m.Filename, m.State, m.ErrorMessage, m.Pauses, m.PrintDurationMs,
			m.CreatedAt, m.StartedAt, m.EndedAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		job.ID = id
		return nil
	}

	_, err := r.db.Exec(
		`UPDATE jobs SET
			state = ?, error_message = ?, pauses = ?, print_duration_ms = ?,
			started_at = ?, ended_at = ?, updated_at = ?
		WHERE id = ?`,
		m.State, m.ErrorMessage, m.Pauses, m.PrintDurationMs,
		m.StartedAt, m.EndedAt, m.UpdatedAt,
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return nil
}

func (r *jobRepository) FindByGUID(guid string) (*Job, error) {
	row := r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE guid = ?`, guid)
	m, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &JobNotFoundError{GUID: guid}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return m.toJob(), nil
}

func (r *jobRepository) List(filter ListFilter) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1 = 1`
	var args []any
	if filter.Card != "" {
		query += ` AND card = ?`
		args = append(args, filter.Card)
	}
	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*Job
	for rows.Next() {
		m, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, m.toJob())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

func (r *jobRepository) DeleteAll(card string) error {
	if _, err := r.db.Exec(`DELETE FROM jobs WHERE card = ?`, card); err != nil {
		return fmt.Errorf("failed to delete jobs: %w", err)
	}
	return nil
}

// MemoryRepository keeps jobs in process memory. Used when persistent
// history is switched off.
type MemoryRepository struct {
	mu     sync.Mutex
	nextID int64
	jobs   []*Job
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Save(job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	if job.ID == 0 {
		r.nextID++
		job.ID = r.nextID
		cp.ID = job.ID
		r.jobs = append(r.jobs, &cp)
		return nil
	}
	for i, j := range r.jobs {
		if j.ID == job.ID {
			r.jobs[i] = &cp
			return nil
		}
	}
	return &JobNotFoundError{GUID: job.GUID}
}

func (r *MemoryRepository) FindByGUID(guid string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.GUID == guid {
			cp := *j
			return &cp, nil
		}
	}
	return nil, &JobNotFoundError{GUID: guid}
}

func (r *MemoryRepository) List(filter ListFilter) ([]*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Job
	for _, j := range slices.Backward(r.jobs) {
		if filter.Card != "" && j.Card != filter.Card {
			continue
		}
		if filter.State != "" && j.State != filter.State {
			continue
		}
		cp := *j
		out = append(out, &cp)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) DeleteAll(card string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = slices.DeleteFunc(r.jobs, func(j *Job) bool { return j.Card == card })
	return nil
}
