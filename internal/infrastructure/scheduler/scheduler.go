package scheduler

import (
	"sync"
	"time"

	"log/slog"

	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// TaskScheduler 延迟任务调度器接口
// 摄取流水线的退避重试都经由该接口调度，测试中用 SimulatedScheduler
// 推进虚拟时间驱动，无需等待真实定时器
type TaskScheduler interface {
	// Schedule 在 delay 之后执行 task
	Schedule(delay time.Duration, task func())
}

// TimerScheduler 基于 time.AfterFunc 的调度器实现
// 任务在各自的 goroutine 中触发，不阻塞其它视频的摄取和查询
type TimerScheduler struct {
	mu     sync.Mutex
	timers []*time.Timer
	closed bool
	logger *slog.Logger
}

// NewTimerScheduler 创建调度器实例
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		logger: applog.NewModuleLogger("scheduler", "timer"),
	}
}

// Schedule 在 delay 之后执行 task
func (s *TimerScheduler) Schedule(delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Warn("scheduler stopped, dropping task", "delay", delay)
		return
	}

	s.logger.Debug("task scheduled", "delay", delay)
	s.timers = append(s.timers, time.AfterFunc(delay, task))
}

// Stop 停止所有未触发的定时器
// 已触发的任务不受影响，幂等
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// SimulatedScheduler 虚拟时间调度器
// 测试专用：Schedule 只登记任务，Advance 推进虚拟时钟并同步执行到期任务
type SimulatedScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*simulatedTask
}

type simulatedTask struct {
	due  time.Duration
	task func()
}

// NewSimulatedScheduler 创建虚拟时间调度器
func NewSimulatedScheduler() *SimulatedScheduler {
	return &SimulatedScheduler{}
}

// Schedule 登记一个在虚拟时间 now+delay 到期的任务
func (s *SimulatedScheduler) Schedule(delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, &simulatedTask{due: s.now + delay, task: task})
}

// Advance 推进虚拟时钟并执行所有到期任务
// 时钟逐个任务推进到各自的到期时刻再执行，任务执行中新登记的任务
// 若到期时刻仍在本次推进窗口内，会在同一次 Advance 内执行
func (s *SimulatedScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now + d
	s.mu.Unlock()

	for {
		task := s.popDue(target)
		if task == nil {
			break
		}
		task.task()
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
}

// Pending 返回未到期的任务数量
func (s *SimulatedScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// popDue 取出 target 之前最先到期的任务，并把时钟推到它的到期时刻
func (s *SimulatedScheduler) popDue(target time.Duration) *simulatedTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.tasks {
		if t.due <= target && (idx == -1 || t.due < s.tasks[idx].due) {
			idx = i
		}
	}
	if idx == -1 {
		return nil
	}
	task := s.tasks[idx]
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	if task.due > s.now {
		s.now = task.due
	}
	return task
}
