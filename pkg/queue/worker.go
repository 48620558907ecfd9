package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrQueueFull   = errors.New("work queue is full")
	ErrQueueClosed = errors.New("work queue is closed")
)

const (
	BackpressureReject = "reject"
	BackpressureWait   = "wait"
)

// Job 在 worker goroutine 中执行
type Job func(ctx context.Context) error

type job struct {
	ctx    context.Context
	fn     Job
	result chan error
}

// WorkQueue 固定数量的 worker 消费有界任务通道
// 模型是单个昂贵的共享资源，默认只有一个 worker，调用被串行化
type WorkQueue struct {
	jobs    chan *job
	workers int
	wait    bool

	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
}

// NewWorkQueue depth 为排队任务的上限（不含正在执行的），backpressure 为 reject 或 wait
func NewWorkQueue(depth, workers int, backpressure string) *WorkQueue {
	if workers <= 0 {
		workers = 1
	}
	if depth < 0 {
		depth = 0
	}
	return &WorkQueue{
		jobs:    make(chan *job, depth),
		workers: workers,
		wait:    backpressure == BackpressureWait,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run 启动 worker，阻塞直到 ctx 结束，退出前把还在排队的任务以 ErrQueueClosed 结束
func (q *WorkQueue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx)
		}()
	}

	<-ctx.Done()
	q.closeOnce.Do(func() { close(q.done) })
	wg.Wait()

	for {
		select {
		case j := <-q.jobs:
			j.result <- ErrQueueClosed
		default:
			close(q.stopped)
			return nil
		}
	}
}

func (q *WorkQueue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-q.jobs:
			q.exec(j)
		}
	}
}

func (q *WorkQueue) exec(j *job) {
	// 排队期间调用方已经放弃
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("work queue job panicked", zap.Any("panic", r))
			j.result <- fmt.Errorf("job panicked: %v", r)
		}
	}()
	j.result <- j.fn(j.ctx)
}

// Do 提交任务并等待结果
// reject 模式下队列已满立即返回 ErrQueueFull；wait 模式下阻塞到有空位或 ctx 结束
func (q *WorkQueue) Do(ctx context.Context, fn Job) error {
	j := &job{ctx: ctx, fn: fn, result: make(chan error, 1)}

	if q.wait {
		select {
		case q.jobs <- j:
		case <-q.done:
			return ErrQueueClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		select {
		case <-q.done:
			return ErrQueueClosed
		default:
		}
		select {
		case q.jobs <- j:
		default:
			return ErrQueueFull
		}
	}

	// 任务一旦入队，一定会被执行或被 Run 退出时清理
	select {
	case err := <-j.result:
		return err
	case <-q.stopped:
		select {
		case err := <-j.result:
			return err
		default:
			return ErrQueueClosed
		}
	}
}

// Len 当前排队的任务数
func (q *WorkQueue) Len() int {
	return len(q.jobs)
}
