package storage

import (
	"context"

	"github.com/terra-clan/simulex-engine/internal/models"
)

// Repository defines the persistence contract for the catalog and attempt results.
// Getters return (nil, nil) when the record does not exist.
type Repository interface {
	// Roles
	SaveRole(ctx context.Context, role *models.Role) error
	GetRole(ctx context.Context, id string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]*models.Role, error)

	// Simulations. GetSimulation expands the owning role.
	SaveSimulation(ctx context.Context, sim *models.Simulation) error
	GetSimulation(ctx context.Context, id string) (*models.Simulation, error)
	ListSimulations(ctx context.Context, filter models.SimulationFilter) ([]*models.Simulation, error)

	// Tasks. ListTasks sorts by display order, unordered tasks last.
	SaveTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, simulationID string) ([]*models.Task, error)

	// Results
	CreateResult(ctx context.Context, r *models.Result) error
	GetResult(ctx context.Context, id string) (*models.Result, error)
	FindOpenResult(ctx context.Context, userID, simulationID, taskID string) (*models.Result, error)
	ListResults(ctx context.Context, filter models.ResultFilter) ([]*models.Result, error)
	// CompleteResult writes the completion fields of r, but only while the
	// stored record is still open. It reports whether a row was updated.
	CompleteResult(ctx context.Context, r *models.Result) (bool, error)

	// Health
	HealthCheck(ctx context.Context) error
	Close() error
}
