package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// SQLiteRepository implements Repository on an embedded SQLite database.
// It is meant for local runs and tests; all access goes through one connection.
type SQLiteRepository struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

// NewSQLiteRepository opens the database at path (":memory:" for a private
// in-memory database) and applies the embedded migrations.
func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}

	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := RunSQLiteMigrations(ctx, db, SQLiteMigrations()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// HealthCheck checks database connectivity
func (r *SQLiteRepository) HealthCheck(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database handle
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Roles

func (r *SQLiteRepository) SaveRole(ctx context.Context, role *models.Role) error {
	stampCreated(&role.CreatedAt, &role.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roles (id, title, description, icon, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title, description = excluded.description, icon = excluded.icon,
		    color = excluded.color, updated_at = excluded.updated_at
	`,
		role.ID, role.Title, role.Description, nullString(role.Icon), nullString(role.Color),
		toMillis(role.CreatedAt), toMillis(role.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save role: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRole(ctx context.Context, id string) (*models.Role, error) {
	role, err := scanSQLiteRole(r.db.QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

func (r *SQLiteRepository) ListRoles(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role, err := scanSQLiteRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// Simulations

func (r *SQLiteRepository) SaveSimulation(ctx context.Context, sim *models.Simulation) error {
	stampCreated(&sim.CreatedAt, &sim.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO simulations (id, title, description, role_id, difficulty, duration, image, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title, description = excluded.description, role_id = excluded.role_id,
		    difficulty = excluded.difficulty, duration = excluded.duration, image = excluded.image,
		    is_active = excluded.is_active, updated_at = excluded.updated_at
	`,
		sim.ID, sim.Title, sim.Description, sim.RoleID, string(sim.Difficulty), sim.Duration,
		nullString(sim.Image), sim.IsActive, toMillis(sim.CreatedAt), toMillis(sim.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save simulation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	sim, err := scanSQLiteSimulation(r.db.QueryRowContext(ctx, `SELECT `+simulationColumns+` FROM simulations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get simulation: %w", err)
	}

	role, err := r.GetRole(ctx, sim.RoleID)
	if err != nil {
		return nil, fmt.Errorf("failed to expand role: %w", err)
	}
	sim.Role = role

	return sim, nil
}

func (r *SQLiteRepository) ListSimulations(ctx context.Context, filter models.SimulationFilter) ([]*models.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE 1=1`
	var args []any

	if filter.RoleID != "" {
		query += " AND role_id = ?"
		args = append(args, filter.RoleID)
	}
	if filter.ActiveOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY title"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer rows.Close()

	var sims []*models.Simulation
	for rows.Next() {
		sim, err := scanSQLiteSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sims = append(sims, sim)
	}
	return sims, rows.Err()
}

// Tasks

func (r *SQLiteRepository) SaveTask(ctx context.Context, task *models.Task) error {
	stampCreated(&task.CreatedAt, &task.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, simulation_id, type, difficulty, time_limit, resources, evaluation, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET title = excluded.title, description = excluded.description, simulation_id = excluded.simulation_id,
		    type = excluded.type, difficulty = excluded.difficulty, time_limit = excluded.time_limit,
		    resources = excluded.resources, evaluation = excluded.evaluation,
		    display_order = excluded.display_order, updated_at = excluded.updated_at
	`,
		task.ID, task.Title, task.Description, task.SimulationID, string(task.Type), string(task.Difficulty),
		task.TimeLimit, docText(task.ResourceDoc), docText(task.EvaluationDoc), nullInt(task.Order),
		toMillis(task.CreatedAt), toMillis(task.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task, err := scanSQLiteTask(r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, simulationID string) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE simulation_id = ? ORDER BY `+taskOrder, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Results

func (r *SQLiteRepository) CreateResult(ctx context.Context, res *models.Result) error {
	stampCreated(&res.CreatedAt, &res.UpdatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO results (id, user_id, simulation_id, task_id, start_time, end_time, score, accuracy, speed,
		                     submission, feedback, recording, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		res.ID, res.UserID, res.SimulationID, res.TaskID, toMillis(res.StartTime), nullMillis(res.EndTime),
		nullFloat(res.Score), nullFloat(res.Accuracy), nullFloat(res.Speed),
		docText(res.Submission), nullString(res.Feedback), docText(res.Recording), res.Completed,
		toMillis(res.CreatedAt), toMillis(res.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetResult(ctx context.Context, id string) (*models.Result, error) {
	res, err := scanSQLiteResult(r.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return res, nil
}

func (r *SQLiteRepository) FindOpenResult(ctx context.Context, userID, simulationID, taskID string) (*models.Result, error) {
	res, err := scanSQLiteResult(r.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+`
		FROM results
		WHERE user_id = ? AND simulation_id = ? AND task_id = ? AND completed = 0
		ORDER BY start_time ASC
		LIMIT 1
	`, userID, simulationID, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open result: %w", err)
	}
	return res, nil
}

func (r *SQLiteRepository) ListResults(ctx context.Context, filter models.ResultFilter) ([]*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE 1=1`
	var args []any

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.SimulationID != "" {
		query += " AND simulation_id = ?"
		args = append(args, filter.SimulationID)
	}
	if filter.Completed != nil {
		query += " AND completed = ?"
		args = append(args, *filter.Completed)
	}
	query += " ORDER BY created_at ASC, rowid ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		res, err := scanSQLiteResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *SQLiteRepository) CompleteResult(ctx context.Context, res *models.Result) (bool, error) {
	res.UpdatedAt = time.Now().UTC()

	out, err := r.db.ExecContext(ctx, `
		UPDATE results
		SET end_time = ?, score = ?, accuracy = ?, speed = ?, submission = ?,
		    feedback = ?, recording = ?, completed = 1, updated_at = ?
		WHERE id = ? AND completed = 0
	`,
		nullMillis(res.EndTime), nullFloat(res.Score), nullFloat(res.Accuracy), nullFloat(res.Speed),
		docText(res.Submission), nullString(res.Feedback), docText(res.Recording), toMillis(res.UpdatedAt),
		res.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete result: %w", err)
	}

	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func docText(d models.Document) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: string(d), Valid: true}
}

// SQLite row scanners. Timestamps are stored as Unix milliseconds.

func scanSQLiteRole(row rowScanner) (*models.Role, error) {
	var role models.Role
	var icon, color sql.NullString
	var created, updated int64

	if err := row.Scan(&role.ID, &role.Title, &role.Description, &icon, &color, &created, &updated); err != nil {
		return nil, err
	}

	role.Icon = icon.String
	role.Color = color.String
	role.CreatedAt = fromMillis(created)
	role.UpdatedAt = fromMillis(updated)
	return &role, nil
}

func scanSQLiteSimulation(row rowScanner) (*models.Simulation, error) {
	var sim models.Simulation
	var difficulty string
	var image sql.NullString
	var created, updated int64

	err := row.Scan(&sim.ID, &sim.Title, &sim.Description, &sim.RoleID, &difficulty, &sim.Duration,
		&image, &sim.IsActive, &created, &updated)
	if err != nil {
		return nil, err
	}

	sim.Difficulty = models.SimulationDifficulty(difficulty)
	sim.Image = image.String
	sim.CreatedAt = fromMillis(created)
	sim.UpdatedAt = fromMillis(updated)
	return &sim, nil
}

func scanSQLiteTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var taskType, difficulty string
	var resources, evaluation sql.NullString
	var order sql.NullInt64
	var created, updated int64

	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.SimulationID, &taskType, &difficulty,
		&task.TimeLimit, &resources, &evaluation, &order, &created, &updated)
	if err != nil {
		return nil, err
	}

	task.Type = models.TaskType(taskType)
	task.Difficulty = models.TaskDifficulty(difficulty)
	if resources.Valid {
		task.ResourceDoc = models.Document(resources.String)
	}
	if evaluation.Valid {
		task.EvaluationDoc = models.Document(evaluation.String)
	}
	task.Order = intPtr(order)
	task.CreatedAt = fromMillis(created)
	task.UpdatedAt = fromMillis(updated)
	return &task, nil
}

func scanSQLiteResult(row rowScanner) (*models.Result, error) {
	var res models.Result
	var start, created, updated int64
	var end sql.NullInt64
	var score, accuracy, speed sql.NullFloat64
	var submission, feedback, recording sql.NullString

	err := row.Scan(&res.ID, &res.UserID, &res.SimulationID, &res.TaskID, &start, &end,
		&score, &accuracy, &speed, &submission, &feedback, &recording, &res.Completed, &created, &updated)
	if err != nil {
		return nil, err
	}

	res.StartTime = fromMillis(start)
	if end.Valid {
		t := fromMillis(end.Int64)
		res.EndTime = &t
	}
	res.Score = floatPtr(score)
	res.Accuracy = floatPtr(accuracy)
	res.Speed = floatPtr(speed)
	if submission.Valid {
		res.Submission = models.Document(submission.String)
	}
	res.Feedback = feedback.String
	if recording.Valid {
		res.Recording = models.Document(recording.String)
	}
	res.CreatedAt = fromMillis(created)
	res.UpdatedAt = fromMillis(updated)
	return &res, nil
}
