package telemetry

import (
	"sync"
	"time"
)

// Metrics 遥测消费统计
type Metrics struct {
	mu sync.RWMutex

	// 读数处理统计
	ReadingsReceived int64 // 收到的读数总数
	ReadingsAccepted int64 // 落库并发布事件的读数
	ReadingsIgnored  int64 // 被忽略的读数（倒走、未知车辆、非正数）
	ReadingsFailed   int64 // 处理失败的读数

	// 错误分类统计
	ErrorsParse   int64 // 主题或载荷解析错误
	ErrorsUpdate  int64 // 里程更新错误
	ErrorsPublish int64 // 事件发布错误

	LastAcceptedAt time.Time
	StartTime      time.Time
}

func NewMetrics() *Metrics {
	return &Metrics{StartTime: time.Now()}
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		ReadingsReceived: m.ReadingsReceived,
		ReadingsAccepted: m.ReadingsAccepted,
		ReadingsIgnored:  m.ReadingsIgnored,
		ReadingsFailed:   m.ReadingsFailed,
		ErrorsParse:      m.ErrorsParse,
		ErrorsUpdate:     m.ErrorsUpdate,
		ErrorsPublish:    m.ErrorsPublish,
		LastAcceptedAt:   m.LastAcceptedAt,
		StartTime:        m.StartTime,
	}
}

// IncrementReceived 增加收到计数
func (m *Metrics) IncrementReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadingsReceived++
}

// IncrementAccepted 增加接受计数
func (m *Metrics) IncrementAccepted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadingsAccepted++
	m.LastAcceptedAt = time.Now()
}

// IncrementIgnored 增加忽略计数
func (m *Metrics) IncrementIgnored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadingsIgnored++
}

// IncrementFailed 增加失败计数并按类型归因
func (m *Metrics) IncrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadingsFailed++
	switch errorType {
	case "parse":
		m.ErrorsParse++
	case "update":
		m.ErrorsUpdate++
	case "publish":
		m.ErrorsPublish++
	}
}
