// Package registry persists the deployment state of this plugin: what was
// registered with Qiita and the outcome of each provisioning run.
package registry

import (
	"context"
	"encoding/json"

	"github.com/qiita-spots/qp-shogun/internal/model"
)

// Store defines the persistence interface for the deployment registry.
type Store interface {
	// Plugin registration mirror
	UpsertPlugin(ctx context.Context, plugin model.Plugin) error
	GetPlugin(ctx context.Context, name string) (*model.Plugin, error)
	ListCommands(ctx context.Context, pluginName string) ([]model.Command, error)

	// Provisioning runs
	InsertRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, id string, status model.RunStatus, report json.RawMessage) error
	RecentRuns(ctx context.Context, limit int) ([]*model.Run, error)

	// Lifecycle
	Close() error
}
