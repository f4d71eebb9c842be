package narrative

import (
	"errors"
	"sync"
)

// Emitter 抽象了平台提供的相交观察能力。Start 之后每次滚动或尺寸变化都会
// 回调最新的几何信息；Stop 之后不再回调。
type Emitter interface {
	Start(callback func(Geometry)) error
	Stop()
}

// Reporter 观察单个区块，在区块进入观察带的上升沿向 Sink 上报一次。
type Reporter struct {
	id      SectionID
	spec    ObserverSpec
	emitter Emitter
	sink    Sink

	mu      sync.Mutex
	started bool
	stopped bool
	inView  bool
}

// NewReporter 创建区块观察者。
func NewReporter(id SectionID, spec ObserverSpec, emitter Emitter, sink Sink) *Reporter {
	return &Reporter{id: id, spec: spec, emitter: emitter, sink: sink}
}

// Start 开始观察。同一个 Reporter 只能启动一次。
func (r *Reporter) Start() error {
	if r.emitter == nil || r.sink == nil {
		return errors.New("reporter 缺少 emitter 或 sink")
	}
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("reporter 已启动")
	}
	r.started = true
	r.mu.Unlock()
	return r.emitter.Start(r.observe)
}

// Stop 停止观察，可重复调用。返回后不会再有上报到达 Sink。
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()
	if started {
		r.emitter.Stop()
	}
}

// ID 返回被观察的区块。
func (r *Reporter) ID() SectionID { return r.id }

func (r *Reporter) observe(g Geometry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	in := InView(g, r.spec)
	rising := in && !r.inView
	r.inView = in
	if rising {
		r.sink.Report(r.id)
	}
}
