package catalog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/simulex-engine/internal/models"
	"github.com/terra-clan/simulex-engine/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadShippedCatalog(t *testing.T) {
	dir := filepath.Join("..", "..", "catalog")
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		t.Skip("catalog directory not found, skipping")
	}

	l := NewLoader(dir, quietLogger())
	require.NoError(t, l.Reload())

	assert.Len(t, l.Roles(), 5)
	assert.Len(t, l.Simulations(), 5)

	bugHunt := ID("simulation", "developer", "frontend-bug-hunt")
	tasks := l.Tasks(bugHunt)
	require.NotEmpty(t, tasks)

	counter := tasks[0]
	assert.Equal(t, "Fix the Counter Component", counter.Title)
	assert.Equal(t, ID("task", "developer", "frontend-bug-hunt", "fix-counter"), counter.ID)
	assert.Equal(t, 600, counter.TimeLimit)
	require.NotNil(t, counter.Order)
	assert.Equal(t, 1, *counter.Order)

	criteria, err := counter.Criteria()
	require.NoError(t, err)
	require.Len(t, criteria, 3)
	assert.Equal(t, "Functionality", criteria[0].Name)
	assert.InDelta(t, 0.5, criteria[0].Weight, 1e-9)
	assert.InDelta(t, 0.3, criteria[1].Weight, 1e-9)
	assert.InDelta(t, 0.2, criteria[2].Weight, 1e-9)

	res, err := counter.Resources()
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "Counter.jsx", res.Files[0].Name)
	assert.Contains(t, res.Files[0].Content, "setCount(count + 1)")
	assert.Len(t, res.Hints, 2)
}

func TestLoaderSkipsInvalidEntries(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "developer", "role.yaml"), "title: Developer\ncolor: \"#3b82f6\"\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "simulation.yaml"),
		"title: Bugs\ndifficulty: beginner\nduration: 10\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "b.yaml"),
		"title: Second\ntype: code\ndifficulty: beginner\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "a.yaml"),
		"title: First\ntype: code\ndifficulty: beginner\ntime_limit: 120\norder: 2\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "bad-type.yaml"),
		"title: Broken\ntype: poetry\ndifficulty: beginner\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "too-long.yaml"),
		"title: Slow\ntype: code\ndifficulty: beginner\ntime_limit: 7200\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "developer", "marathon", "simulation.yaml"),
		"title: Marathon\ndifficulty: beginner\nduration: 500\n")
	writeFile(t, filepath.Join(dir, "nobody", "role.yaml"), "title: X\n")
	writeFile(t, filepath.Join(dir, "designer", "role.yaml"),
		"title: Designer\nicon: "+strings.Repeat("i", 101)+"\n")
	writeFile(t, filepath.Join(dir, "stray", "readme.yaml"), "title: not a role\n")

	l := NewLoader(dir, quietLogger())
	require.NoError(t, l.Reload())

	roles := l.Roles()
	require.Len(t, roles, 1)
	assert.Equal(t, "Developer", roles[0].Title)
	sims := l.Simulations()
	require.Len(t, sims, 1)
	assert.True(t, sims[0].IsActive, "simulations default to active")
	assert.Equal(t, ID("role", "developer"), sims[0].RoleID)

	tasks := l.Tasks(sims[0].ID)
	require.Len(t, tasks, 2)
	assert.Equal(t, "First", tasks[0].Title)
	assert.Nil(t, tasks[1].Order)
	assert.True(t, tasks[1].EvaluationDoc.IsEmpty())
}

func TestReloadMissingDir(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "missing"), quietLogger())
	assert.Error(t, l.Reload())
}

func TestIDIsStable(t *testing.T) {
	assert.Equal(t, ID("role", "developer"), ID("role", "developer"))
	assert.NotEqual(t, ID("role", "developer"), ID("simulation", "developer"))
	assert.Len(t, ID("task", "a", "b", "c"), 36)
}

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "developer", "role.yaml"), "title: Developer\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "simulation.yaml"),
		"title: Bugs\ndifficulty: beginner\nduration: 10\n")
	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "a.yaml"),
		"title: First\ntype: code\ndifficulty: beginner\norder: 1\nevaluation:\n  criteria:\n    - name: Functionality\n      weight: 1\n")

	repo, err := storage.NewSQLiteRepository(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	l := NewLoader(dir, quietLogger())
	require.NoError(t, l.Reload())
	require.NoError(t, Seed(ctx, repo, l))

	writeFile(t, filepath.Join(dir, "developer", "bugs", "tasks", "a.yaml"),
		"title: First (revised)\ntype: code\ndifficulty: beginner\norder: 1\n")
	require.NoError(t, l.Reload())
	require.NoError(t, Seed(ctx, repo, l))

	simID := ID("simulation", "developer", "bugs")
	sim, err := repo.GetSimulation(ctx, simID)
	require.NoError(t, err)
	require.NotNil(t, sim)
	require.NotNil(t, sim.Role)
	assert.Equal(t, "Developer", sim.Role.Title)

	tasks, err := repo.ListTasks(ctx, simID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "First (revised)", tasks[0].Title)

	sims, err := repo.ListSimulations(ctx, models.SimulationFilter{})
	require.NoError(t, err)
	assert.Len(t, sims, 1)
}
