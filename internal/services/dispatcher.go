package services

import (
	"context"
	"sync"

	"eventsbot/internal/log"
)

// Dispatcher 异步分发服务：审核通过后把帖子放入队列，由后台 worker 发送通知，
// 审核请求本身不等待逐个用户的发送
type Dispatcher struct {
	dist    *DistributionService
	posts   *PostService
	queue   chan uint // 待分发的帖子 ID 队列
	pending map[uint]bool
	closed  bool
	mu      sync.Mutex
	wg      sync.WaitGroup

	// OnReport, when set, receives every finished fan-out.
	OnReport func(*DeliveryReport)
}

func NewDispatcher(dist *DistributionService, posts *PostService, size int) *Dispatcher {
	return &Dispatcher{
		dist:    dist,
		posts:   posts,
		queue:   make(chan uint, size), // 缓冲队列，防止阻塞
		pending: make(map[uint]bool),
	}
}

// Start runs the worker until ctx is cancelled. Posts still queued at
// that point are delivered before the worker exits; Wait blocks until
// then.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.worker(ctx)
	}()
}

// Wait blocks until the worker has stopped and the queue is drained.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Schedule hands a freshly published post over for fan-out. It reports
// whether the post was queued. When the queue is full, or the worker has
// already stopped, the fan-out runs on the caller's goroutine instead and
// Schedule returns false. A post already waiting in the queue is not
// queued twice.
func (d *Dispatcher) Schedule(postID uint) bool {
	d.mu.Lock()
	if d.pending[postID] {
		// 已在队列中，跳过
		d.mu.Unlock()
		return true
	}
	if !d.closed {
		// 非阻塞发送到队列
		select {
		case d.queue <- postID:
			d.pending[postID] = true
			d.mu.Unlock()
			return true
		default:
		}
	}
	closed := d.closed
	d.mu.Unlock()

	if closed {
		log.Warn.Printf("分发服务已停止，帖子 %d 直接发送通知", postID)
	} else {
		log.Warn.Printf("分发队列已满，帖子 %d 直接发送通知", postID)
	}
	d.process(context.Background(), postID)
	return false
}

func (d *Dispatcher) worker(ctx context.Context) {
	// in-flight fan-outs are not cut short by shutdown
	run := context.WithoutCancel(ctx)
	for {
		select {
		case postID := <-d.queue:
			d.processQueued(run, postID)
		case <-ctx.Done():
			d.drain(run)
			return
		}
	}
}

// drain closes the queue to new posts and delivers what is left in it.
func (d *Dispatcher) drain(ctx context.Context) {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	left := len(d.queue)
	if left > 0 {
		log.Info.Printf("分发服务停止前处理剩余 %d 个帖子", left)
	}
	for {
		select {
		case postID := <-d.queue:
			d.processQueued(ctx, postID)
		default:
			return
		}
	}
}

func (d *Dispatcher) processQueued(ctx context.Context, postID uint) {
	d.process(ctx, postID)

	d.mu.Lock()
	delete(d.pending, postID)
	d.mu.Unlock()
}

func (d *Dispatcher) process(ctx context.Context, postID uint) {
	post, err := d.posts.Get(ctx, postID)
	if err != nil {
		log.Error.Printf("分发失败：帖子 %d 读取出错: %v", postID, err)
		return
	}
	report, err := d.dist.Distribute(ctx, post)
	if err != nil {
		log.Error.Printf("分发失败：帖子 %d: %v", postID, err)
		return
	}
	if d.OnReport != nil {
		d.OnReport(report)
	}
}
