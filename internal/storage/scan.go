package storage

import (
	"database/sql"
	"time"

	"github.com/terra-clan/simulex-engine/internal/models"
)

const (
	roleColumns       = `id, title, description, icon, color, created_at, updated_at`
	simulationColumns = `id, title, description, role_id, difficulty, duration, image, is_active, created_at, updated_at`
	taskColumns       = `id, title, description, simulation_id, type, difficulty, time_limit, resources, evaluation, display_order, created_at, updated_at`
	resultColumns     = `id, user_id, simulation_id, task_id, start_time, end_time, score, accuracy, speed, submission, feedback, recording, completed, created_at, updated_at`

	taskOrder = `display_order ASC NULLS LAST, title ASC, id ASC`
)

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func stampCreated(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// PostgreSQL row scanners

func scanRole(row rowScanner) (*models.Role, error) {
	var role models.Role
	var icon, color sql.NullString

	if err := row.Scan(&role.ID, &role.Title, &role.Description, &icon, &color, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, err
	}

	role.Icon = icon.String
	role.Color = color.String
	return &role, nil
}

func scanSimulation(row rowScanner) (*models.Simulation, error) {
	var sim models.Simulation
	var difficulty string
	var image sql.NullString

	err := row.Scan(
		&sim.ID,
		&sim.Title,
		&sim.Description,
		&sim.RoleID,
		&difficulty,
		&sim.Duration,
		&image,
		&sim.IsActive,
		&sim.CreatedAt,
		&sim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	sim.Difficulty = models.SimulationDifficulty(difficulty)
	sim.Image = image.String
	return &sim, nil
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var taskType, difficulty string
	var resources, evaluation []byte
	var order sql.NullInt64

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.SimulationID,
		&taskType,
		&difficulty,
		&task.TimeLimit,
		&resources,
		&evaluation,
		&order,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Type = models.TaskType(taskType)
	task.Difficulty = models.TaskDifficulty(difficulty)
	task.ResourceDoc = models.Document(resources)
	task.EvaluationDoc = models.Document(evaluation)
	task.Order = intPtr(order)
	return &task, nil
}

func scanResult(row rowScanner) (*models.Result, error) {
	var res models.Result
	var endTime sql.NullTime
	var score, accuracy, speed sql.NullFloat64
	var submission, recording []byte
	var feedback sql.NullString

	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.SimulationID,
		&res.TaskID,
		&res.StartTime,
		&endTime,
		&score,
		&accuracy,
		&speed,
		&submission,
		&feedback,
		&recording,
		&res.Completed,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		res.EndTime = &endTime.Time
	}
	res.Score = floatPtr(score)
	res.Accuracy = floatPtr(accuracy)
	res.Speed = floatPtr(speed)
	res.Submission = models.Document(submission)
	res.Feedback = feedback.String
	res.Recording = models.Document(recording)
	return &res, nil
}
