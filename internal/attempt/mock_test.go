package attempt

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/terra-clan/simulex-engine/internal/evaluator"
	"github.com/terra-clan/simulex-engine/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) SaveRole(ctx context.Context, role *models.Role) error {
	return m.Called(ctx, role).Error(0)
}

func (m *mockRepository) GetRole(ctx context.Context, id string) (*models.Role, error) {
	args := m.Called(ctx, id)
	role, _ := args.Get(0).(*models.Role)
	return role, args.Error(1)
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]*models.Role, error) {
	args := m.Called(ctx)
	roles, _ := args.Get(0).([]*models.Role)
	return roles, args.Error(1)
}

func (m *mockRepository) SaveSimulation(ctx context.Context, sim *models.Simulation) error {
	return m.Called(ctx, sim).Error(0)
}

func (m *mockRepository) GetSimulation(ctx context.Context, id string) (*models.Simulation, error) {
	args := m.Called(ctx, id)
	sim, _ := args.Get(0).(*models.Simulation)
	return sim, args.Error(1)
}

func (m *mockRepository) ListSimulations(ctx context.Context, filter models.SimulationFilter) ([]*models.Simulation, error) {
	args := m.Called(ctx, filter)
	sims, _ := args.Get(0).([]*models.Simulation)
	return sims, args.Error(1)
}

func (m *mockRepository) SaveTask(ctx context.Context, task *models.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	args := m.Called(ctx, id)
	task, _ := args.Get(0).(*models.Task)
	return task, args.Error(1)
}

func (m *mockRepository) ListTasks(ctx context.Context, simulationID string) ([]*models.Task, error) {
	args := m.Called(ctx, simulationID)
	tasks, _ := args.Get(0).([]*models.Task)
	return tasks, args.Error(1)
}

func (m *mockRepository) CreateResult(ctx context.Context, r *models.Result) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepository) GetResult(ctx context.Context, id string) (*models.Result, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.Result)
	return res, args.Error(1)
}

func (m *mockRepository) FindOpenResult(ctx context.Context, userID, simulationID, taskID string) (*models.Result, error) {
	args := m.Called(ctx, userID, simulationID, taskID)
	res, _ := args.Get(0).(*models.Result)
	return res, args.Error(1)
}

func (m *mockRepository) ListResults(ctx context.Context, filter models.ResultFilter) ([]*models.Result, error) {
	args := m.Called(ctx, filter)
	results, _ := args.Get(0).([]*models.Result)
	return results, args.Error(1)
}

func (m *mockRepository) CompleteResult(ctx context.Context, r *models.Result) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepository) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRepository) Close() error {
	return m.Called().Error(0)
}

type fixedEvaluator struct {
	outcome evaluator.Outcome
	calls   int
}

func (f *fixedEvaluator) Evaluate(ctx context.Context, in evaluator.Input) (evaluator.Outcome, error) {
	f.calls++
	return f.outcome, nil
}
