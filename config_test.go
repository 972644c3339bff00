package workerpool

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
pool:
  name: ingest
  min_workers: 2
  max_workers: 6
  growth_step: 3
  sampling_interval: 250ms
  idle_timeout: 2s
  queue_capacity: 100
  policy: grow-only
  eager_spawn: false
`

func TestParseConfig_YAML(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, Config{
		Name:             "ingest",
		MinWorkers:       2,
		MaxWorkers:       6,
		GrowthStep:       3,
		SamplingInterval: 250 * time.Millisecond,
		IdleTimeout:      2 * time.Second,
		QueueCapacity:    100,
		Policy:           PolicyGrowOnly,
		EagerSpawn:       false,
	}, cfg)
}

func TestParseConfig_JSONKeepsDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"pool": {"max_workers": 9}}`), FormatJSON)
	require.NoError(t, err)

	want := DefaultConfig()
	want.MaxWorkers = 9
	assert.Equal(t, want, cfg)
}

func TestParseConfig_Empty(t *testing.T) {
	cfg, err := ParseConfig(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.MaxWorkers)
}

func TestParseConfig_Errors(t *testing.T) {
	_, err := ParseConfig([]byte("pool: ["), FormatYAML)
	assert.Error(t, err)

	_, err = ParseConfig([]byte("{}"), "toml")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pool.yml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxWorkers)

	_, err = LoadConfig(filepath.Join(dir, "pool.ini"))
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestConfig_UnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy = "random"
	_, err := NewFromConfig(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(testConfigYAML), FormatYAML)
	require.NoError(t, err)

	p, err := NewFromConfig(cfg, WithLogger(NewNopLogger()))
	require.NoError(t, err)
	defer p.Shutdown(true)

	s := p.Stats()
	assert.Equal(t, "ingest", s.Name)
	assert.Equal(t, 2, s.Min)
	assert.Equal(t, 6, s.Max)
	assert.Equal(t, 2, s.Alive)
	assert.Equal(t, 3, p.conf.growthStep)
	assert.Equal(t, GrowOnlyPolicy{}, p.conf.policy)
	assert.IsType(t, &MemoryTaskQueue{}, p.queue)
	assert.False(t, p.conf.eagerSpawn)
}
