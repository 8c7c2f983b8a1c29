package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/simulex-engine/internal/storage"
)

// Seed upserts the loaded catalog into repo, parents before children.
// Ids are stable, so seeding twice updates entries in place.
func Seed(ctx context.Context, repo storage.Repository, l *Loader) error {
	roles := l.Roles()
	for _, role := range roles {
		if err := repo.SaveRole(ctx, role); err != nil {
			return fmt.Errorf("failed to seed role %q: %w", role.Title, err)
		}
	}

	sims := l.Simulations()
	for _, sim := range sims {
		if err := repo.SaveSimulation(ctx, sim); err != nil {
			return fmt.Errorf("failed to seed simulation %q: %w", sim.Title, err)
		}
	}

	tasks := l.AllTasks()
	for _, task := range tasks {
		if err := repo.SaveTask(ctx, task); err != nil {
			return fmt.Errorf("failed to seed task %q: %w", task.Title, err)
		}
	}

	l.logger.Info("catalog seeded",
		slog.Int("roles", len(roles)),
		slog.Int("simulations", len(sims)),
		slog.Int("tasks", len(tasks)),
	)
	return nil
}
