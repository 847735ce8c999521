package runner

import (
	"github.com/cuemby/burrow/pkg/compose"
	"github.com/cuemby/burrow/pkg/config"
	"github.com/cuemby/burrow/pkg/stackfile"
	"github.com/cuemby/burrow/pkg/types"
)

// LoadStack reads the stack from the native stack file or the compose files
// named by the configuration
func LoadStack(cfg *config.Config) (*types.Stack, error) {
	if cfg.StackFile != "" {
		return stackfile.Load(cfg.StackFile, stackfile.Options{
			Name:    cfg.StackName,
			EnvFile: cfg.EnvFile,
		})
	}
	if len(cfg.ComposeFiles) == 0 {
		return nil, config.ErrNoStackSource
	}
	return compose.Load(compose.Options{
		Files:       cfg.ComposeFiles,
		ProjectName: cfg.StackName,
		EnvFile:     cfg.EnvFile,
	})
}
