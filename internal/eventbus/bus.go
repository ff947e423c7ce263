package eventbus

import (
	"sync"

	"github.com/AutoHub/AutoHub/internal/common/logger"
)

// 事件名常量。事件负载类型见 internal/audit。
const (
	EventUserChangelogCreate    = "user:changelog:create"
	EventVehicleChangelogCreate = "vehicle:changelog:create"
	EventAppLogCreate           = "app:log:create"
)

// Handler 事件处理函数。
type Handler func(payload interface{})

// Bus 进程内发布/订阅总线：
// - 进程启动时构造一次，显式注入到发布方与订阅方
// - Emit 把每个 handler 放到独立 goroutine 执行，调用方不等待
// - handler panic 被逐个捕获，不影响其他 handler，也不会传回发布方
type Bus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]Handler
	log      logger.Logger
}

// New 创建事件总线。log 可以为 nil（handler panic 将被静默丢弃）。
func New(log logger.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[uint64]Handler),
		log:      log,
	}
}

// On 注册 handler，返回对应的注销函数。
// Go 的函数值不可比较，因此每次 On 都是一次独立订阅，
// 去重由调用方保证（订阅方在启动时各注册一次）。
func (b *Bus) On(event string, h Handler) (off func()) {
	if h == nil {
		return func() {}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.handlers[event]
	if set == nil {
		set = make(map[uint64]Handler)
		b.handlers[event] = set
	}
	b.nextID++
	id := b.nextID
	set[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.handlers[event]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(b.handlers, event)
			}
		}
	}
}

// Emit 异步触发事件：对当前已注册的每个 handler 启动一个 goroutine，
// 立即返回，不关心 handler 是否成功。
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.RLock()
	set := b.handlers[event]
	snapshot := make([]Handler, 0, len(set))
	for _, h := range set {
		snapshot = append(snapshot, h)
	}
	b.mu.RUnlock()

	for _, h := range snapshot {
		h := h
		go func() {
			defer func() {
				if r := recover(); r != nil && b.log != nil {
					b.log.Errorf("event handler panic event=%s err=%v", event, r)
				}
			}()
			h(payload)
		}()
	}
}

// ListenerCount 返回某事件当前的 handler 数量。
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}

// Clear 清空所有订阅（测试用）。
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[string]map[uint64]Handler)
}
