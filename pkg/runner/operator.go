package runner

import (
	"fmt"
	"path/filepath"

	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/runtime"
	"github.com/cuemby/burrow/pkg/storage"
	"github.com/cuemby/burrow/pkg/volume"
)

// OperatorFactory builds the runtime binding for live runs
type OperatorFactory func(cfg *config.Config, store storage.Store) (runtime.Operator, error)

// NewOperator connects to the engine selected by cfg.Engine
func NewOperator(cfg *config.Config, store storage.Store) (runtime.Operator, error) {
	switch cfg.Engine {
	case config.EngineDocker, "":
		return runtime.NewDocker()
	case config.EngineContainerd:
		volumes, err := volume.NewManager(filepath.Join(cfg.DataDir, "volumes"))
		if err != nil {
			return nil, fmt.Errorf("failed to create volume manager: %w", err)
		}
		return runtime.NewContainerd(cfg.ContainerdSocket, cfg.ContainerdNamespace, volumes, store)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}
