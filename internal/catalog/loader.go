// Package catalog loads the seed catalog of roles, simulations and tasks from
// a YAML directory tree and writes it to the store.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/simulex-engine/internal/models"
)

const (
	roleFile       = "role.yaml"
	simulationFile = "simulation.yaml"
	tasksDir       = "tasks"
)

// namespace scopes catalog ids so that slugs map to the same uuid on every load
var namespace = uuid.MustParse("6f1c2b4e-9a57-4d0e-8f3b-2c7a1e5d9b60")

// ID returns the stable id of a catalog entry from its slug path
func ID(kind string, slugs ...string) string {
	name := kind + ":" + strings.Join(slugs, "/")
	return uuid.NewSHA1(namespace, []byte(name)).String()
}

// Loader holds the catalog parsed from disk
type Loader struct {
	dir      string
	logger   *slog.Logger
	validate *validator.Validate

	mu          sync.RWMutex
	roles       map[string]*models.Role
	simulations map[string]*models.Simulation
	tasks       map[string]*models.Task
}

// NewLoader creates a loader for the catalog tree rooted at dir
func NewLoader(dir string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		dir:         dir,
		logger:      logger,
		validate:    validator.New(),
		roles:       make(map[string]*models.Role),
		simulations: make(map[string]*models.Simulation),
		tasks:       make(map[string]*models.Task),
	}
}

// Reload re-reads the whole tree. Broken entries are logged and skipped;
// only an unreadable root is an error. The previous catalog stays in place
// until the new one is complete.
func (l *Loader) Reload() error {
	l.logger.Info("loading catalog", "dir", l.dir)

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return fmt.Errorf("failed to read catalog dir: %w", err)
	}

	roles := make(map[string]*models.Role)
	simulations := make(map[string]*models.Simulation)
	tasks := make(map[string]*models.Task)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		roleDir := filepath.Join(l.dir, entry.Name())
		if _, err := os.Stat(filepath.Join(roleDir, roleFile)); errors.Is(err, os.ErrNotExist) {
			continue
		}

		role, err := l.loadRole(entry.Name(), roleDir)
		if err != nil {
			l.logger.Warn("failed to load role", "dir", entry.Name(), "error", err)
			continue
		}
		roles[role.ID] = role

		sims, simTasks := l.loadSimulations(entry.Name(), role.ID, roleDir)
		for _, sim := range sims {
			simulations[sim.ID] = sim
		}
		for _, task := range simTasks {
			tasks[task.ID] = task
		}
	}

	l.mu.Lock()
	l.roles = roles
	l.simulations = simulations
	l.tasks = tasks
	l.mu.Unlock()

	l.logger.Info("catalog loaded",
		"roles", len(roles),
		"simulations", len(simulations),
		"tasks", len(tasks),
	)
	return nil
}

// Roles returns all roles ordered by title
func (l *Loader) Roles() []*models.Role {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Role, 0, len(l.roles))
	for _, r := range l.roles {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}

// Simulations returns all simulations ordered by title
func (l *Loader) Simulations() []*models.Simulation {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Simulation, 0, len(l.simulations))
	for _, s := range l.simulations {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result
}

// Tasks returns the tasks of a simulation in display order, unordered last
func (l *Loader) Tasks(simulationID string) []*models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*models.Task
	for _, t := range l.tasks {
		if t.SimulationID == simulationID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return taskLess(result[i], result[j]) })
	return result
}

// AllTasks returns every task
func (l *Loader) AllTasks() []*models.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*models.Task, 0, len(l.tasks))
	for _, t := range l.tasks {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SimulationID != result[j].SimulationID {
			return result[i].SimulationID < result[j].SimulationID
		}
		return taskLess(result[i], result[j])
	})
	return result
}

func taskLess(a, b *models.Task) bool {
	switch {
	case a.Order != nil && b.Order == nil:
		return true
	case a.Order == nil && b.Order != nil:
		return false
	case a.Order != nil && *a.Order != *b.Order:
		return *a.Order < *b.Order
	}
	return a.Title < b.Title
}

// --- Catalog loading ---

func (l *Loader) loadRole(slug, dir string) (*models.Role, error) {
	role := &models.Role{}
	if err := readYAML(filepath.Join(dir, roleFile), role); err != nil {
		return nil, err
	}
	role.ID = ID("role", slug)

	if err := l.validate.Struct(role); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}
	return role, nil
}

func (l *Loader) loadSimulations(roleSlug, roleID, dir string) ([]*models.Simulation, []*models.Task) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		l.logger.Warn("failed to read role dir", "role", roleSlug, "error", err)
		return nil, nil
	}

	var sims []*models.Simulation
	var tasks []*models.Task

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		simDir := filepath.Join(dir, entry.Name())
		if _, err := os.Stat(filepath.Join(simDir, simulationFile)); errors.Is(err, os.ErrNotExist) {
			continue
		}

		sim, err := l.loadSimulation(roleSlug, entry.Name(), roleID, simDir)
		if err != nil {
			l.logger.Warn("failed to load simulation", "role", roleSlug, "simulation", entry.Name(), "error", err)
			continue
		}
		sims = append(sims, sim)
		tasks = append(tasks, l.loadTasks(roleSlug, entry.Name(), sim.ID, filepath.Join(simDir, tasksDir))...)
	}

	return sims, tasks
}

func (l *Loader) loadSimulation(roleSlug, slug, roleID, dir string) (*models.Simulation, error) {
	sim := &models.Simulation{IsActive: true}
	if err := readYAML(filepath.Join(dir, simulationFile), sim); err != nil {
		return nil, err
	}
	sim.ID = ID("simulation", roleSlug, slug)
	sim.RoleID = roleID

	if err := l.validate.Struct(sim); err != nil {
		return nil, fmt.Errorf("invalid simulation: %w", err)
	}
	return sim, nil
}

func (l *Loader) loadTasks(roleSlug, simSlug, simulationID, dir string) []*models.Task {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to read tasks dir", "simulation", simSlug, "error", err)
		}
		return nil
	}

	var tasks []*models.Task
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		slug := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		task, err := l.loadTask(filepath.Join(dir, entry.Name()), ID("task", roleSlug, simSlug, slug), simulationID)
		if err != nil {
			l.logger.Warn("failed to load task", "simulation", simSlug, "file", entry.Name(), "error", err)
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func (l *Loader) loadTask(path, id, simulationID string) (*models.Task, error) {
	var tf taskFile
	if err := readYAML(path, &tf); err != nil {
		return nil, err
	}

	task := &tf.Task
	task.ID = id
	task.SimulationID = simulationID

	if err := l.validate.Struct(task); err != nil {
		return nil, fmt.Errorf("invalid task: %w", err)
	}
	for i := range tf.Evaluation.Criteria {
		if err := l.validate.Struct(&tf.Evaluation.Criteria[i]); err != nil {
			return nil, fmt.Errorf("invalid criterion %d: %w", i, err)
		}
	}

	if len(tf.Resources.Files) > 0 || len(tf.Resources.Hints) > 0 {
		doc, err := models.NewDocument(tf.Resources)
		if err != nil {
			return nil, fmt.Errorf("failed to encode resources: %w", err)
		}
		task.ResourceDoc = doc
	}

	if len(tf.Evaluation.Criteria) > 0 {
		doc, err := models.NewDocument(tf.Evaluation)
		if err != nil {
			return nil, fmt.Errorf("failed to encode evaluation: %w", err)
		}
		task.EvaluationDoc = doc
	}

	return task, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// --- YAML file structs ---

// taskFile is a task YAML file: the task fields plus its structured blobs
type taskFile struct {
	models.Task `yaml:",inline"`
	Resources   models.TaskResources `yaml:"resources"`
	Evaluation  evaluation           `yaml:"evaluation"`
}

type evaluation struct {
	Criteria []models.Criterion `json:"criteria" yaml:"criteria"`
}
