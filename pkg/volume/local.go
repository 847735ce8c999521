package volume

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cuemby/burrow/pkg/types"
)

const (
	// DefaultVolumesPath is the base directory for local volumes
	DefaultVolumesPath = "/var/lib/burrow/volumes"

	// DriverLocal is the only driver the containerd engine understands
	DriverLocal = "local"

	dataDir = "_data"
)

// ErrInvalidName is returned for volume names that would escape the base directory
var ErrInvalidName = errors.New("invalid volume name")

// Driver defines the interface for volume drivers
type Driver interface {
	// Create creates the volume if it does not exist yet
	Create(volume *types.Volume) error

	// Exists reports whether the volume has been created
	Exists(name string) (bool, error)

	// Delete removes a volume and its data
	Delete(name string) error

	// Mount returns the host path to bind into containers
	Mount(name string) (string, error)
}

// LocalDriver keeps each volume as a directory on the host:
// <base>/<name>/_data
type LocalDriver struct {
	basePath string
}

// NewLocalDriver creates a new local volume driver
func NewLocalDriver(basePath string) (*LocalDriver, error) {
	if basePath == "" {
		basePath = DefaultVolumesPath
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create volumes directory: %w", err)
	}

	return &LocalDriver{
		basePath: basePath,
	}, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Create creates the volume data directory
func (d *LocalDriver) Create(volume *types.Volume) error {
	if err := validName(volume.Name); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dataPath(volume.Name), 0755); err != nil {
		return fmt.Errorf("failed to create volume directory: %w", err)
	}
	return nil
}

// Exists reports whether the volume data directory is present
func (d *LocalDriver) Exists(name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}

	info, err := os.Stat(d.dataPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat volume %s: %w", name, err)
	}
	return info.IsDir(), nil
}

// Delete removes a local volume directory
func (d *LocalDriver) Delete(name string) error {
	if err := validName(name); err != nil {
		return err
	}

	if err := os.RemoveAll(d.GetPath(name)); err != nil {
		return fmt.Errorf("failed to delete volume directory: %w", err)
	}
	return nil
}

// Mount returns the host path for bind mounting to containers
func (d *LocalDriver) Mount(name string) (string, error) {
	ok, err := d.Exists(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("volume directory does not exist: %s", d.dataPath(name))
	}
	return d.dataPath(name), nil
}

// GetPath returns the host directory of a volume
func (d *LocalDriver) GetPath(name string) string {
	return filepath.Join(d.basePath, name)
}

func (d *LocalDriver) dataPath(name string) string {
	return filepath.Join(d.GetPath(name), dataDir)
}

// Manager routes volumes to the driver named by Volume.Driver
type Manager struct {
	drivers map[string]Driver
}

// NewManager creates a manager with the local driver rooted at basePath
func NewManager(basePath string) (*Manager, error) {
	local, err := NewLocalDriver(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create local driver: %w", err)
	}

	return &Manager{
		drivers: map[string]Driver{
			DriverLocal: local,
		},
	}, nil
}

// GetDriver returns the driver for a name. Empty means local.
func (m *Manager) GetDriver(name string) (Driver, error) {
	if name == "" {
		name = DriverLocal
	}
	driver, ok := m.drivers[name]
	if !ok {
		return nil, fmt.Errorf("unknown volume driver: %s", name)
	}
	return driver, nil
}

// CreateVolume creates a volume using the appropriate driver
func (m *Manager) CreateVolume(volume *types.Volume) error {
	driver, err := m.GetDriver(volume.Driver)
	if err != nil {
		return err
	}
	return driver.Create(volume)
}

// VolumeExists checks the local driver. Volumes of other drivers cannot exist.
func (m *Manager) VolumeExists(name string) (bool, error) {
	return m.drivers[DriverLocal].Exists(name)
}

// MountVolume returns the host path of a volume
func (m *Manager) MountVolume(name string) (string, error) {
	return m.drivers[DriverLocal].Mount(name)
}

// DeleteVolume removes a volume
func (m *Manager) DeleteVolume(name string) error {
	return m.drivers[DriverLocal].Delete(name)
}
