package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// HealthCheck checks database connectivity
func (r *PostgresRepository) HealthCheck(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Roles

// SaveRole inserts a role or updates it in place
func (r *PostgresRepository) SaveRole(ctx context.Context, role *models.Role) error {
	stampCreated(&role.CreatedAt, &role.UpdatedAt)

	query := `
		INSERT INTO roles (id, title, description, icon, color, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description, icon = EXCLUDED.icon,
		    color = EXCLUDED.color, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Title,
		role.Description,
		nullString(role.Icon),
		nullString(role.Color),
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save role: %w", err)
	}

	return nil
}

// GetRole retrieves a role by ID
func (r *PostgresRepository) GetRole(ctx context.Context, id string) (*models.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`

	role, err := scanRole(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// ListRoles returns all roles ordered by title
func (r *PostgresRepository) ListRoles(ctx context.Context) ([]*models.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roles: %w", err)
	}

	return roles, nil
}

// Simulations

// SaveSimulation inserts a simulation or updates it in place
func (r *PostgresRepository) SaveSimulation(ctx context.Context, sim *models.Simulation) error {
	stampCreated(&sim.CreatedAt, &sim.UpdatedAt)

	query := `
		INSERT INTO simulations (id, title, description, role_id, difficulty, duration, image, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description, role_id = EXCLUDED.role_id,
		    difficulty = EXCLUDED.difficulty, duration = EXCLUDED.duration, image = EXCLUDED.image,
		    is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		sim.ID,
		sim.Title,
		sim.Description,
		sim.RoleID,
		string(sim.Difficulty),
		sim.Duration,
		nullString(sim.Image),
		sim.IsActive,
		sim.CreatedAt,
		sim.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save simulation: %w", err)
	}

	return nil
}

// GetSimulation retrieves a simulation by ID with its role expanded
func (r *PostgresRepository) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE id = $1`

	sim, err := scanSimulation(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

// ListSimulations returns simulations matching filter, ordered by title
func (r *PostgresRepository) ListSimulations(ctx context.Context, filter models.SimulationFilter) ([]*models.Simulation, error) {
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filter.RoleID != "" {
		query += fmt.Sprintf(" AND role_id = $%d", argNum)
		args = append(args, filter.RoleID)
		argNum++
	}

	if filter.ActiveOnly {
		query += " AND is_active = TRUE"
	}

	query += " ORDER BY title"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer rows.Close()

	var sims []*models.Simulation
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan simulation: %w", err)
		}
		sims = append(sims, sim)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating simulations: %w", err)
	}

	return sims, nil
}

// Tasks

// SaveTask inserts a task or updates it in place
func (r *PostgresRepository) SaveTask(ctx context.Context, task *models.Task) error {
	stampCreated(&task.CreatedAt, &task.UpdatedAt)

	query := `
		INSERT INTO tasks (id, title, description, simulation_id, type, difficulty, time_limit, resources, evaluation, display_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description, simulation_id = EXCLUDED.simulation_id,
		    type = EXCLUDED.type, difficulty = EXCLUDED.difficulty, time_limit = EXCLUDED.time_limit,
		    resources = EXCLUDED.resources, evaluation = EXCLUDED.evaluation,
		    display_order = EXCLUDED.display_order, updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.SimulationID,
		string(task.Type),
		string(task.Difficulty),
		task.TimeLimit,
		task.ResourceDoc.Value(),
		task.EvaluationDoc.Value(),
		nullInt(task.Order),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID
func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListTasks returns the tasks of a simulation in display order
func (r *PostgresRepository) ListTasks(ctx context.Context, simulationID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE simulation_id = $1 ORDER BY ` + taskOrder

	rows, err := r.pool.Query(ctx, query, simulationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Results

// CreateResult creates a new result record
func (r *PostgresRepository) CreateResult(ctx context.Context, res *models.Result) error {
	stampCreated(&res.CreatedAt, &res.UpdatedAt)

	query := `
		INSERT INTO results (id, user_id, simulation_id, task_id, start_time, end_time, score, accuracy, speed,
		                     submission, feedback, recording, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.UserID,
		res.SimulationID,
		res.TaskID,
		res.StartTime,
		nullTime(res.EndTime),
		res.Score,
		res.Accuracy,
		res.Speed,
		res.Submission.Value(),
		nullString(res.Feedback),
		res.Recording.Value(),
		res.Completed,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}

	return nil
}

// GetResult retrieves a result by ID
func (r *PostgresRepository) GetResult(ctx context.Context, id string) (*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE id = $1`

	res, err := scanResult(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	return res, nil
}

// FindOpenResult returns the oldest open result for the triple
func (r *PostgresRepository) FindOpenResult(ctx context.Context, userID, simulationID, taskID string) (*models.Result, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM results
		WHERE user_id = $1 AND simulation_id = $2 AND task_id = $3 AND completed = FALSE
		ORDER BY start_time ASC
		LIMIT 1
	`

	res, err := scanResult(r.pool.QueryRow(ctx, query, userID, simulationID, taskID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find open result: %w", err)
	}

	return res, nil
}

// ListResults returns results matching filter, in creation order
func (r *PostgresRepository) ListResults(ctx context.Context, filter models.ResultFilter) ([]*models.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argNum)
		args = append(args, filter.UserID)
		argNum++
	}

	if filter.SimulationID != "" {
		query += fmt.Sprintf(" AND simulation_id = $%d", argNum)
		args = append(args, filter.SimulationID)
		argNum++
	}

	if filter.Completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argNum)
		args = append(args, *filter.Completed)
	}

	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []*models.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// CompleteResult writes the completion fields while the stored record is open
func (r *PostgresRepository) CompleteResult(ctx context.Context, res *models.Result) (bool, error) {
	res.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE results
		SET end_time = $2, score = $3, accuracy = $4, speed = $5, submission = $6,
		    feedback = $7, recording = $8, completed = TRUE, updated_at = $9
		WHERE id = $1 AND completed = FALSE
	`

	tag, err := r.pool.Exec(ctx, query,
		res.ID,
		nullTime(res.EndTime),
		res.Score,
		res.Accuracy,
		res.Speed,
		res.Submission.Value(),
		nullString(res.Feedback),
		res.Recording.Value(),
		res.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to complete result: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
