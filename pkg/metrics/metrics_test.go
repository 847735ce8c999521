package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationsCounter(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("volume", "created"))
	OperationsTotal.WithLabelValues("volume", "created").Inc()
	after := testutil.ToFloat64(OperationsTotal.WithLabelValues("volume", "created"))

	assert.Equal(t, before+1, after)
}

func TestWriteTextfile(t *testing.T) {
	RunsTotal.WithLabelValues("up", "success").Inc()

	path := filepath.Join(t.TempDir(), "textfile", "burrow.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.Contains(content, `burrow_runs_total{command="up",outcome="success"}`))
	assert.Contains(t, content, "# TYPE burrow_runs_total counter")
}
