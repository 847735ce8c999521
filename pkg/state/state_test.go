package state

import (
	"context"
	"errors"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	present map[string]bool
	fail    map[string]bool
	calls   []string
}

func (f *fakeChecker) query(kind, name string) (bool, error) {
	f.calls = append(f.calls, kind+":"+name)
	if f.fail[kind+":"+name] {
		return false, errors.New("engine unavailable")
	}
	return f.present[kind+":"+name], nil
}

func (f *fakeChecker) ImageExists(_ context.Context, image string) (bool, error) {
	return f.query("image", image)
}

func (f *fakeChecker) ContainerExists(_ context.Context, name string) (bool, error) {
	return f.query("container", name)
}

func (f *fakeChecker) VolumeExists(_ context.Context, name string) (bool, error) {
	return f.query("volume", name)
}

func (f *fakeChecker) NetworkExists(_ context.Context, name string) (bool, error) {
	return f.query("network", name)
}

func testStack(t *testing.T) *types.Stack {
	t.Helper()
	stack := types.NewStack("shop")
	require.NoError(t, stack.Add(
		&types.Network{Name: "backend"},
		&types.Volume{Name: "data"},
		&types.Service{Name: "db", Image: "postgres:16.2"},
		&types.Service{Name: "api", Image: "shop/api:1.4.0", ContainerName: "shop-api", DependsOn: []string{"db"}},
		&types.Service{Name: "worker", Image: "shop/api:1.4.0"},
	))
	return stack
}

func TestEmpty(t *testing.T) {
	s := Empty()
	assert.Equal(t, Unknown, s.Container("db"))
	assert.Equal(t, Unknown, s.Volume("data"))
	assert.Equal(t, Unknown, s.Network("backend"))
	assert.Equal(t, Unknown, s.Image("postgres:16.2"))
	assert.Equal(t, 0, s.Known())
}

func TestBuilderFreezes(t *testing.T) {
	b := NewBuilder().Container("db", Exists)
	s := b.Build()
	b.Container("db", Missing)

	assert.Equal(t, Exists, s.Container("db"))
	assert.Equal(t, Missing, b.Build().Container("db"))
}

func TestExistencePresent(t *testing.T) {
	assert.True(t, Exists.Present())
	assert.True(t, Unknown.Present())
	assert.False(t, Missing.Present())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestResolve(t *testing.T) {
	checker := &fakeChecker{present: map[string]bool{
		"network:backend":     true,
		"image:postgres:16.2": true,
		"container:db":        true,
		"container:unrelated": true,
	}}

	s, err := NewResolver(checker).Resolve(context.Background(), testStack(t))
	require.NoError(t, err)

	assert.Equal(t, Exists, s.Network("backend"))
	assert.Equal(t, Missing, s.Volume("data"))
	assert.Equal(t, Exists, s.Image("postgres:16.2"))
	assert.Equal(t, Missing, s.Image("shop/api:1.4.0"))
	assert.Equal(t, Exists, s.Container("db"))
	assert.Equal(t, Missing, s.Container("shop-api"))
	assert.Equal(t, Unknown, s.Container("unrelated"))

	assert.Equal(t, []string{
		"network:backend",
		"volume:data",
		"image:postgres:16.2",
		"image:shop/api:1.4.0",
		"container:db",
		"container:shop-api",
		"container:worker",
	}, checker.calls)
}

func TestResolvePartialFailure(t *testing.T) {
	checker := &fakeChecker{
		present: map[string]bool{"container:db": true},
		fail:    map[string]bool{"volume:data": true, "container:shop-api": true},
	}

	s, err := NewResolver(checker).Resolve(context.Background(), testStack(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "volume data")
	assert.Contains(t, err.Error(), "container shop-api")

	assert.Equal(t, Unknown, s.Volume("data"))
	assert.Equal(t, Unknown, s.Container("shop-api"))
	assert.Equal(t, Exists, s.Container("db"))
	assert.Equal(t, Missing, s.Container("worker"))
}
