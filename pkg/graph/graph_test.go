package graph

import (
	"errors"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func svc(name string, deps ...string) *types.Service {
	return &types.Service{Name: name, Image: name + ":1.0", DependsOn: deps}
}

// n8nServices declares traefik-whoami before traefik on purpose
func n8nServices() []*types.Service {
	return []*types.Service{
		svc("postgres"),
		svc("n8n", "postgres"),
		svc("pgadmin"),
		svc("traefik-whoami", "traefik"),
		svc("traefik"),
	}
}

func names(services []*types.Service) []string {
	out := make([]string, len(services))
	for i, s := range services {
		out[i] = s.Name
	}
	return out
}

func TestSort(t *testing.T) {
	tests := []struct {
		name     string
		services []*types.Service
		filter   []string
		want     []string
	}{
		{
			name:     "empty",
			services: nil,
			want:     []string{},
		},
		{
			name:     "declaration order without deps",
			services: []*types.Service{svc("a"), svc("b"), svc("c")},
			want:     []string{"a", "b", "c"},
		},
		{
			name:     "dependency declared later",
			services: n8nServices(),
			want:     []string{"postgres", "n8n", "pgadmin", "traefik", "traefik-whoami"},
		},
		{
			name:     "filtered",
			services: n8nServices(),
			filter:   []string{"traefik-whoami", "n8n"},
			want:     []string{"n8n", "traefik-whoami"},
		},
		{
			name:     "diamond",
			services: []*types.Service{svc("web", "api", "cache"), svc("api", "db"), svc("cache", "db"), svc("db")},
			want:     []string{"db", "api", "cache", "web"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sort(tt.services, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestSortDependenciesPrecedeDependents(t *testing.T) {
	services := []*types.Service{
		svc("frontend", "api", "auth"),
		svc("worker", "queue", "db"),
		svc("api", "db", "queue", "auth"),
		svc("auth", "db"),
		svc("queue"),
		svc("db"),
	}

	got, err := Sort(services, nil)
	require.NoError(t, err)
	require.Len(t, got, len(services))

	pos := make(map[string]int)
	for i, s := range got {
		pos[s.Name] = i
	}
	for _, s := range services {
		for _, dep := range s.DependsOn {
			assert.Less(t, pos[dep], pos[s.Name], "%s must precede %s", dep, s.Name)
		}
	}
}

func TestSortCycle(t *testing.T) {
	tests := []struct {
		name     string
		services []*types.Service
	}{
		{"self", []*types.Service{svc("a", "a")}},
		{"pair", []*types.Service{svc("a", "b"), svc("b", "a")}},
		{"long", []*types.Service{svc("x"), svc("a", "b"), svc("b", "c"), svc("c", "a")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sort(tt.services, nil)
			var cycle *CycleError
			require.True(t, errors.As(err, &cycle), "got %v", err)
			assert.NotEmpty(t, cycle.Service)
		})
	}
}

func TestSortUnknownDependency(t *testing.T) {
	_, err := Sort([]*types.Service{svc("api", "db")}, nil)

	var unknown *UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "api", unknown.Service)
	assert.Equal(t, "db", unknown.Dependency)
}

func TestSortFilterValidatesClosure(t *testing.T) {
	services := []*types.Service{svc("db", "missing"), svc("api", "db")}

	_, err := Sort(services, []string{"api"})
	var unknown *UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "db", unknown.Service)
}

func TestSortFilterLeavesDependenciesOut(t *testing.T) {
	services := []*types.Service{svc("db"), svc("api", "db")}

	got, err := Sort(services, []string{"api"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "api", got[0].Name)

	got, err = Sort(services, []string{"api", "db"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "db", got[0].Name)
	assert.Equal(t, "api", got[1].Name)
}

func TestSortUnknownFilter(t *testing.T) {
	_, err := Sort(n8nServices(), []string{"redis"})

	var unknown *UnknownServiceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "redis", unknown.Service)
}

func TestReverse(t *testing.T) {
	ordered, err := Sort([]*types.Service{svc("api", "db"), svc("db")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "api"}, names(ordered))
	assert.Equal(t, []string{"api", "db"}, names(Reverse(ordered)))
	assert.Equal(t, []string{"db", "api"}, names(ordered))
}
