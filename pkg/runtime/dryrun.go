package runtime

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cuemby/burrow/pkg/events"
	"github.com/cuemby/burrow/pkg/types"
)

// dryRunResource is what the simulated runtime remembers about a resource
type dryRunResource struct {
	name      string
	labels    map[string]string
	service   *types.Service
	createdAt time.Time
}

// DryRun is a simulated runtime kept entirely in memory. It never touches a
// real engine, so it is safe to hand to the engines when the run must not
// have side effects.
//
// Existence queries are stamped on the recorder as exists-check events.
// Mutations are not: the engines record those themselves.
type DryRun struct {
	mu         sync.Mutex
	containers map[string]*dryRunResource
	volumes    map[string]*dryRunResource
	networks   map[string]*dryRunResource
	images     map[string]*dryRunResource
	recorder   *events.Recorder
}

// NewDryRun creates an empty simulated runtime. recorder may be nil.
func NewDryRun(recorder *events.Recorder) *DryRun {
	return &DryRun{
		containers: make(map[string]*dryRunResource),
		volumes:    make(map[string]*dryRunResource),
		networks:   make(map[string]*dryRunResource),
		images:     make(map[string]*dryRunResource),
		recorder:   recorder,
	}
}

func (d *DryRun) exists(kind events.Kind, m map[string]*dryRunResource, name string) bool {
	d.mu.Lock()
	_, ok := m[name]
	d.mu.Unlock()

	if d.recorder != nil {
		d.recorder.RecordExists(kind, name, ok)
	}
	return ok
}

func (d *DryRun) put(m map[string]*dryRunResource, r *dryRunResource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r.createdAt = time.Now()
	m[r.name] = r
}

func (d *DryRun) ImageExists(_ context.Context, image string) (bool, error) {
	return d.exists(events.KindImage, d.images, image), nil
}

func (d *DryRun) ImagePull(_ context.Context, image string) error {
	d.put(d.images, &dryRunResource{name: image})
	return nil
}

func (d *DryRun) ContainerExists(_ context.Context, name string) (bool, error) {
	return d.exists(events.KindContainer, d.containers, name), nil
}

func (d *DryRun) ContainerRun(_ context.Context, stackName string, svc *types.Service) error {
	d.put(d.containers, &dryRunResource{
		name:    svc.ContainerNameSafe(),
		labels:  containerLabels(stackName, svc),
		service: svc,
	})
	return nil
}

// ContainerRemove fails with ErrNotFound when the container was never run
func (d *DryRun) ContainerRemove(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.containers[name]; !ok {
		return opError("remove container", name, ErrNotFound)
	}
	delete(d.containers, name)
	return nil
}

// ContainerHealthStatus always reports a running, healthy container
func (d *DryRun) ContainerHealthStatus(_ context.Context, _ string) (HealthStatus, error) {
	return HealthStatus{Status: StatusRunning, Health: HealthHealthy}, nil
}

func (d *DryRun) VolumeExists(_ context.Context, name string) (bool, error) {
	return d.exists(events.KindVolume, d.volumes, name), nil
}

func (d *DryRun) VolumeCreate(_ context.Context, stackName string, vol *types.Volume) error {
	d.put(d.volumes, &dryRunResource{name: vol.Name, labels: MergeLabels(stackName, vol.Labels)})
	return nil
}

func (d *DryRun) NetworkExists(_ context.Context, name string) (bool, error) {
	return d.exists(events.KindNetwork, d.networks, name), nil
}

func (d *DryRun) NetworkCreate(_ context.Context, stackName string, net *types.Network) error {
	d.put(d.networks, &dryRunResource{name: net.Name, labels: MergeLabels(stackName, net.Labels)})
	return nil
}

// StackContainers lists the simulated containers labeled with the stack
func (d *DryRun) StackContainers(_ context.Context, stackName string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var names []string
	for name, r := range d.containers {
		if r.labels[LabelStack] == stackName {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}
