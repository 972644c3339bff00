package workerpool

import (
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultGrowthStep       = 2
	DefaultSamplingInterval = 5 * time.Second
	// MaxQueueCapacity 有界队列容量上限,ringbuf 按 2 的幂分配槽位
	MaxQueueCapacity = 1 << 20
)

// Option 定义 Pool 可选配置函数类型。
type Option func(*options)

type options struct {
	// growthStep 每次伸缩增减的 worker 数,默认 2
	growthStep int
	// samplingInterval supervisor 采样周期,默认 5 秒
	samplingInterval time.Duration
	// idleTimeout worker 空闲多久后自行退出,0 表示不超时
	idleTimeout time.Duration
	// queueCapacity 队列容量,0 表示无界
	queueCapacity int
	queue         TaskQueue
	policy        ScalingPolicy
	// eagerSpawn 提交任务时没有空闲 worker 则立即扩容一个
	eagerSpawn    bool
	logger        Logger
	name          string
	meterProvider metric.MeterProvider
}

func defaultOptions() options {
	return options{
		growthStep:       DefaultGrowthStep,
		samplingInterval: DefaultSamplingInterval,
		policy:           UtilizationPolicy{},
		eagerSpawn:       true,
		logger:           NewSlogLogger(nil),
		meterProvider:    otel.GetMeterProvider(),
	}
}

func WithGrowthStep(step int) Option {
	return func(o *options) {
		o.growthStep = step
	}
}

func WithSamplingInterval(d time.Duration) Option {
	return func(o *options) {
		o.samplingInterval = d
	}
}

// WithIdleTimeout 设置 worker 空闲超时,超时后在不低于 MinWorkers 的前提下自行退出
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// WithQueueCapacity 设置有界队列容量,满时 Submit 返回 ErrQueueFull。
// 容量不能超过 MaxQueueCapacity,需要更大容量时使用无界队列
func WithQueueCapacity(capacity int) Option {
	return func(o *options) {
		o.queueCapacity = capacity
	}
}

// WithTaskQueue 使用自定义队列实现,优先于 WithQueueCapacity
func WithTaskQueue(q TaskQueue) Option {
	return func(o *options) {
		if q != nil {
			o.queue = q
		}
	}
}

func WithScalingPolicy(p ScalingPolicy) Option {
	return func(o *options) {
		if p != nil {
			o.policy = p
		}
	}
}

func WithEagerSpawn(enabled bool) Option {
	return func(o *options) {
		o.eagerSpawn = enabled
	}
}

// WithLogger 设置日志记录器,传入 nil 将被忽略
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName 设置 pool 名称,用于区分日志和指标来源
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}
