package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvgraph/kvgraph/pkg/graph"
)

func TestLoadDefaults(t *testing.T) {
	o, err := Load("")
	require.NoError(t, err)
	assert.True(t, o.CreateNew)
	assert.True(t, o.ReadOptimize)
	assert.True(t, o.IsDirected)
	assert.False(t, o.IsWeighted)
	assert.Equal(t, 1, o.NumThreads)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	data := `
db_name: soc-livejournal
db_dir: /tmp/graphs
graph_type: ekey_split
is_directed: false
is_weighted: true
num_threads: 8
cache_size: 1073741824
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "soc-livejournal", o.DBName)
	assert.Equal(t, "/tmp/graphs", o.DBDir)
	assert.Equal(t, graph.SplitEKey, o.Type)
	assert.False(t, o.IsDirected)
	assert.True(t, o.IsWeighted)
	assert.True(t, o.ReadOptimize) // untouched default
	assert.Equal(t, 8, o.NumThreads)
	assert.Equal(t, int64(1<<30), o.CacheSize)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db_name: from-file\ngraph_type: adj\n"), 0o644))

	t.Setenv("KVGRAPH_DB_NAME", "from-env")
	t.Setenv("KVGRAPH_GRAPH_TYPE", "ekey")
	t.Setenv("KVGRAPH_READ_OPTIMIZE", "false")
	t.Setenv("KVGRAPH_NUM_THREADS", "16")

	o, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", o.DBName)
	assert.Equal(t, graph.EKey, o.Type)
	assert.False(t, o.ReadOptimize)
	assert.Equal(t, 16, o.NumThreads)
}

func TestParseGraphType(t *testing.T) {
	for s, want := range map[string]graph.GraphType{
		"adj":        graph.Adj,
		"ekey":       graph.EKey,
		"ekey_split": graph.SplitEKey,
	} {
		got, err := ParseGraphType(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseGraphType("csr")
	assert.Error(t, err)
}

func TestBadEnvValue(t *testing.T) {
	t.Setenv("KVGRAPH_NUM_THREADS", "many")
	_, err := Load("")
	assert.Error(t, err)
}
