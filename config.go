package workerpool

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// 配置格式
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// 内置伸缩策略名称
const (
	PolicyUtilization = "utilization"
	PolicyGrowOnly    = "grow-only"
)

// configPath 配置文件中 pool 配置所在的路径
const configPath = "pool"

// Config 可从配置文件加载的 Pool 配置,字段含义与同名 Option 一致
type Config struct {
	Name string `koanf:"name"`
	// MinWorkers 最少 worker 数,默认 1
	MinWorkers int `koanf:"min_workers"`
	// MaxWorkers 最多 worker 数,默认 GOMAXPROCS
	MaxWorkers int `koanf:"max_workers"`
	// GrowthStep 每次伸缩的 worker 数,默认 2
	GrowthStep int `koanf:"growth_step"`
	// SamplingInterval supervisor 采样周期,默认 5s
	SamplingInterval time.Duration `koanf:"sampling_interval"`
	// IdleTimeout worker 空闲超时,默认 0 不超时
	IdleTimeout time.Duration `koanf:"idle_timeout"`
	// QueueCapacity 队列容量,默认 0 无界
	QueueCapacity int `koanf:"queue_capacity"`
	// Policy 伸缩策略: utilization 或 grow-only
	Policy string `koanf:"policy"`
	// EagerSpawn 提交时无空闲 worker 立即扩容,默认开启
	EagerSpawn bool `koanf:"eager_spawn"`
}

func DefaultConfig() Config {
	return Config{
		MinWorkers:       1,
		MaxWorkers:       runtime.GOMAXPROCS(0),
		GrowthStep:       DefaultGrowthStep,
		SamplingInterval: DefaultSamplingInterval,
		Policy:           PolicyUtilization,
		EagerSpawn:       true,
	}
}

// LoadConfig 从文件加载配置,根据扩展名识别 yaml/json,未出现的字段保持默认值
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("empty config path")
	}
	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return ParseConfig(data, format)
}

// ParseConfig 从字节数据解析配置
func ParseConfig(data []byte, format string) (Config, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return Config{}, errors.Errorf("unsupported config format %q", format)
	}

	cfg := DefaultConfig()
	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, errors.Wrap(err, "parse config")
		}
	}
	if err := k.UnmarshalWithConf(configPath, &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, errors.Wrap(err, "unmarshal config")
	}
	return cfg, nil
}

func detectFormat(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Errorf("unsupported config extension %q", ext)
	}
}

// Options 把配置转换为 Option 列表
func (c Config) Options() ([]Option, error) {
	var policy ScalingPolicy
	switch c.Policy {
	case "", PolicyUtilization:
		policy = UtilizationPolicy{}
	case PolicyGrowOnly:
		policy = GrowOnlyPolicy{}
	default:
		return nil, errors.Wrapf(ErrInvalidConfiguration, "unknown scaling policy %q", c.Policy)
	}

	return []Option{
		WithName(c.Name),
		WithGrowthStep(c.GrowthStep),
		WithSamplingInterval(c.SamplingInterval),
		WithIdleTimeout(c.IdleTimeout),
		WithQueueCapacity(c.QueueCapacity),
		WithScalingPolicy(policy),
		WithEagerSpawn(c.EagerSpawn),
	}, nil
}

// NewFromConfig 按配置创建 Pool, opts 在配置之后应用,可覆盖配置项
func NewFromConfig(c Config, opts ...Option) (*Pool, error) {
	base, err := c.Options()
	if err != nil {
		return nil, err
	}
	return New(c.MinWorkers, c.MaxWorkers, append(base, opts...)...)
}
