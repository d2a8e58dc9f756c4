// Package config loads graph options from YAML files and environment
// variables.
//
// Precedence, lowest to highest: library defaults, the YAML file (if any),
// then KVGRAPH_* environment variables. The CLI resolves its flags on top
// of the result.
//
// Environment variables:
//
//   - KVGRAPH_DB_NAME, KVGRAPH_DB_DIR
//   - KVGRAPH_GRAPH_TYPE = adj | ekey | ekey_split
//   - KVGRAPH_CREATE_NEW, KVGRAPH_READ_OPTIMIZE, KVGRAPH_IS_DIRECTED,
//     KVGRAPH_IS_WEIGHTED, KVGRAPH_OPTIMIZE_CREATE, KVGRAPH_SYNC_WRITES
//     (true/false, 1/0)
//   - KVGRAPH_NUM_THREADS, KVGRAPH_CACHE_SIZE
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kvgraph/kvgraph/pkg/graph"
)

// fileConfig is the YAML shape. Pointer fields distinguish "absent" from
// "explicitly false".
type fileConfig struct {
	DBName         *string `yaml:"db_name"`
	DBDir          *string `yaml:"db_dir"`
	GraphType      *string `yaml:"graph_type"`
	CreateNew      *bool   `yaml:"create_new"`
	ReadOptimize   *bool   `yaml:"read_optimize"`
	IsDirected     *bool   `yaml:"is_directed"`
	IsWeighted     *bool   `yaml:"is_weighted"`
	OptimizeCreate *bool   `yaml:"optimize_create"`
	SyncWrites     *bool   `yaml:"sync_writes"`
	NumThreads     *int    `yaml:"num_threads"`
	CacheSize      *int64  `yaml:"cache_size"`
}

// Load builds graph options from defaults, an optional YAML file, and the
// environment.
func Load(path string) (*graph.Options, error) {
	o := graph.NewOptions()
	if path != "" {
		if err := applyFile(o, path); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(o); err != nil {
		return nil, err
	}
	return o, nil
}

// ParseGraphType maps a directory-name token to a representation.
func ParseGraphType(s string) (graph.GraphType, error) {
	switch s {
	case "adj":
		return graph.Adj, nil
	case "ekey":
		return graph.EKey, nil
	case "ekey_split":
		return graph.SplitEKey, nil
	default:
		return 0, fmt.Errorf("config: unknown graph type %q (want adj, ekey or ekey_split)", s)
	}
}

func applyFile(o *graph.Options, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if fc.DBName != nil {
		o.DBName = *fc.DBName
	}
	if fc.DBDir != nil {
		o.DBDir = *fc.DBDir
	}
	if fc.GraphType != nil {
		if o.Type, err = ParseGraphType(*fc.GraphType); err != nil {
			return err
		}
	}
	if fc.CreateNew != nil {
		o.CreateNew = *fc.CreateNew
	}
	if fc.ReadOptimize != nil {
		o.ReadOptimize = *fc.ReadOptimize
	}
	if fc.IsDirected != nil {
		o.IsDirected = *fc.IsDirected
	}
	if fc.IsWeighted != nil {
		o.IsWeighted = *fc.IsWeighted
	}
	if fc.OptimizeCreate != nil {
		o.OptimizeCreate = *fc.OptimizeCreate
	}
	if fc.SyncWrites != nil {
		o.SyncWrites = *fc.SyncWrites
	}
	if fc.NumThreads != nil {
		o.NumThreads = *fc.NumThreads
	}
	if fc.CacheSize != nil {
		o.CacheSize = *fc.CacheSize
	}
	return nil
}

func applyEnv(o *graph.Options) error {
	if v := os.Getenv("KVGRAPH_DB_NAME"); v != "" {
		o.DBName = v
	}
	if v := os.Getenv("KVGRAPH_DB_DIR"); v != "" {
		o.DBDir = v
	}
	if v := os.Getenv("KVGRAPH_GRAPH_TYPE"); v != "" {
		t, err := ParseGraphType(v)
		if err != nil {
			return err
		}
		o.Type = t
	}
	var err error
	if o.CreateNew, err = envBool("KVGRAPH_CREATE_NEW", o.CreateNew); err != nil {
		return err
	}
	if o.ReadOptimize, err = envBool("KVGRAPH_READ_OPTIMIZE", o.ReadOptimize); err != nil {
		return err
	}
	if o.IsDirected, err = envBool("KVGRAPH_IS_DIRECTED", o.IsDirected); err != nil {
		return err
	}
	if o.IsWeighted, err = envBool("KVGRAPH_IS_WEIGHTED", o.IsWeighted); err != nil {
		return err
	}
	if o.OptimizeCreate, err = envBool("KVGRAPH_OPTIMIZE_CREATE", o.OptimizeCreate); err != nil {
		return err
	}
	if o.SyncWrites, err = envBool("KVGRAPH_SYNC_WRITES", o.SyncWrites); err != nil {
		return err
	}
	if v := os.Getenv("KVGRAPH_NUM_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: KVGRAPH_NUM_THREADS: %w", err)
		}
		o.NumThreads = n
	}
	if v := os.Getenv("KVGRAPH_CACHE_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: KVGRAPH_CACHE_SIZE: %w", err)
		}
		o.CacheSize = n
	}
	return nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
