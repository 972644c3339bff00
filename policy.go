package workerpool

// Snapshot 某一时刻的池状态,由 supervisor 在池锁内采样
type Snapshot struct {
	QueueLength int
	// Alive 存活且未被标记退出的 worker 数
	Alive    int
	Busy     int
	Idle     int
	Retiring int
	Min      int
	Max      int
	// Step 每次伸缩的 worker 数
	Step int
}

// Decision 一次伸缩决策,Grow 与 Shrink 同时为正时以 Grow 为准
type Decision struct {
	Grow   int
	Shrink int
}

var (
	_ ScalingPolicy = UtilizationPolicy{}
	_ ScalingPolicy = GrowOnlyPolicy{}
)

// UtilizationPolicy 默认策略:
//   - 存活数低于下限时补齐
//   - 积压任务数超过存活数时扩容 Step 个
//   - 忙碌数不足一半且存活数大于 Min+Step 时缩容 Step 个
type UtilizationPolicy struct{}

func (UtilizationPolicy) Decide(s Snapshot) Decision {
	d := GrowOnlyPolicy{}.Decide(s)
	if s.Busy*2 < s.Alive && s.Alive > s.Min+s.Step {
		d.Shrink = s.Step
	}
	return d
}

// GrowOnlyPolicy 只扩容不缩容,缩容交给 worker 的空闲超时
type GrowOnlyPolicy struct{}

func (GrowOnlyPolicy) Decide(s Snapshot) Decision {
	var d Decision
	if s.Alive < s.Min {
		d.Grow = s.Min - s.Alive
	}
	if s.QueueLength > s.Alive && s.Alive < s.Max && d.Grow < s.Step {
		d.Grow = s.Step
	}
	return d
}

// clamp 保证决策不突破 [Min, Max]
func (d Decision) clamp(s Snapshot) Decision {
	if d.Grow > 0 {
		d.Shrink = 0
		if room := s.Max - s.Alive; d.Grow > room {
			d.Grow = room
		}
		if d.Grow < 0 {
			d.Grow = 0
		}
		return d
	}
	d.Grow = 0
	if room := s.Alive - s.Min; d.Shrink > room {
		d.Shrink = room
	}
	if d.Shrink < 0 {
		d.Shrink = 0
	}
	return d
}
