// Package tasks implements scheduled background tasks for KawanBot:
// conversation retention and database maintenance.
package tasks

import (
	"log/slog"

	"github.com/edgard/kawanbot/internal/config"
	"github.com/edgard/kawanbot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
