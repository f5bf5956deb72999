package request

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/ghdir/ghdir/internal/cache"
	"github.com/ghdir/ghdir/internal/logging"
)

const (
	// DefaultTTL 是调用方未指定 TTL 时的缓存时长。
	DefaultTTL     = time.Hour
	defaultWorkers = 4
	// 非 2xx 响应体最多读取这么多字节再丢弃，以便连接复用。
	drainLimit = 64 << 10
)

var errNullBody = errors.New("response body is null")

// Doer 抽象 HTTP 传输，*http.Client 即满足该接口。
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Options 描述 Pipeline 的依赖，均在进程启动时构造并注入。
type Options struct {
	Client     Doer
	Store      *cache.Store
	Logger     *logrus.Logger
	Workers    int
	DefaultTTL time.Duration
	// Completion 为 nil 时 Pipeline 自建一个 Loop 并在 Close 时停止它。
	Completion Completion
}

// Pipeline 对每次调用执行 构建 → 查缓存 → 发送 → 分类 → 解码 → 回写缓存 → 投递。
// 同一 key 的并发未命中不会合并，各自访问网络并各自写缓存。
type Pipeline struct {
	client     Doer
	store      *cache.Store
	logger     *logrus.Logger
	workers    *semaphore.Weighted
	defaultTTL time.Duration
	completion Completion
	ownedLoop  *Loop
}

// Result 是一次调用的最终结果，Err 为 nil 或 Error。
type Result[T any] struct {
	Value T
	Err   error
}

// NewPipeline 校验依赖并填充默认值。
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Client == nil {
		return nil, errors.New("http client is required")
	}
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}

	p := &Pipeline{
		client:     opts.Client,
		store:      opts.Store,
		logger:     opts.Logger,
		defaultTTL: opts.DefaultTTL,
		completion: opts.Completion,
	}
	if p.logger == nil {
		p.logger = logging.Discard()
	}
	if p.defaultTTL <= 0 {
		p.defaultTTL = DefaultTTL
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	p.workers = semaphore.NewWeighted(int64(workers))
	if p.completion == nil {
		p.ownedLoop = NewLoop()
		p.ownedLoop.Start()
		p.completion = p.ownedLoop
	}
	return p, nil
}

// Close 停止 Pipeline 自建的投递 Loop，已排队的结果仍会被投递。
func (p *Pipeline) Close() {
	if p.ownedLoop != nil {
		p.ownedLoop.Close()
	}
}

// Key 返回描述符对应的缓存 key。
func (p *Pipeline) Key(d Descriptor) (string, error) {
	u, err := d.URL()
	if err != nil {
		return "", invalidRequest(err)
	}
	return CacheKey(u), nil
}

// Invalidate 删除描述符对应的缓存条目。
func (p *Pipeline) Invalidate(d Descriptor) error {
	key, err := p.Key(d)
	if err != nil {
		return err
	}
	p.store.Remove(key)
	return nil
}

// Go 异步执行 d，fn 在 Pipeline 的投递上下文上被调用且只调用一次。
// 缓存命中在调用方 goroutine 上同步判定，但依旧异步投递。
func Go[T any](ctx context.Context, p *Pipeline, d Descriptor, ttl time.Duration, fn func(T, error)) {
	c := p.newCall(d, ttl)
	deliver := func(value T, err error) {
		c.finish(err)
		p.completion.Deliver(func() { fn(value, err) })
	}

	u, err := d.URL()
	if err != nil {
		var zero T
		deliver(zero, invalidRequest(err))
		return
	}
	c.url = u
	c.key = CacheKey(u)

	var cached T
	if p.store.Load(c.key, &cached) {
		c.cacheHit = true
		deliver(cached, nil)
		return
	}

	go func() {
		value, err := fetch[T](ctx, p, c)
		deliver(value, err)
	}()
}

// Execute 异步执行 d，返回只会收到一个 Result 的通道。
func Execute[T any](ctx context.Context, p *Pipeline, d Descriptor, ttl time.Duration) <-chan Result[T] {
	out := make(chan Result[T], 1)
	Go(ctx, p, d, ttl, func(value T, err error) {
		out <- Result[T]{Value: value, Err: err}
	})
	return out
}

// Fetch 等待 Execute 的结果。ctx 结束时放弃等待，底层请求由 ctx 一并取消。
// 不要在驱动投递 Loop 的 goroutine 上调用 Fetch。
func Fetch[T any](ctx context.Context, p *Pipeline, d Descriptor, ttl time.Duration) (T, error) {
	select {
	case res := <-Execute[T](ctx, p, d, ttl):
		return res.Value, res.Err
	case <-ctx.Done():
		var zero T
		return zero, transportError(ctx.Err())
	}
}

func fetch[T any](ctx context.Context, p *Pipeline, c *call) (T, error) {
	var zero T

	if err := p.workers.Acquire(ctx, 1); err != nil {
		return zero, transportError(err)
	}
	defer p.workers.Release(1)

	req, err := c.desc.newRequest(ctx, c.url)
	if err != nil {
		return zero, invalidRequest(err)
	}

	p.logger.WithFields(c.fields()).Debug("request_dispatched")
	resp, err := p.client.Do(req)
	if err != nil {
		return zero, transportError(err)
	}
	defer resp.Body.Close()
	c.status = resp.StatusCode

	if statusErr, failed := StatusError(resp.StatusCode); failed {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
		return zero, statusErr
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, transportError(err)
	}

	if cache.IsNull(body) {
		return zero, decodingError(errNullBody)
	}
	var value T
	if err := json.Unmarshal(body, &value); err != nil {
		return zero, decodingError(err)
	}

	p.store.Save(c.key, value, c.ttl)
	return value, nil
}

// call 记录单次调用的上下文，只用于日志。
type call struct {
	desc      Descriptor
	ttl       time.Duration
	requestID string
	started   time.Time
	url       *url.URL
	key       string
	cacheHit  bool
	status    int
	logger    *logrus.Logger
}

func (p *Pipeline) newCall(d Descriptor, ttl time.Duration) *call {
	if ttl <= 0 {
		ttl = p.defaultTTL
	}
	return &call{
		desc:      d,
		ttl:       ttl,
		requestID: uuid.NewString(),
		started:   time.Now(),
		logger:    p.logger,
	}
}

func (c *call) fields() logrus.Fields {
	rawURL := ""
	if c.url != nil {
		rawURL = c.url.String()
	}
	return logging.RequestFields(c.desc.method(), rawURL, c.requestID, c.cacheHit)
}

func (c *call) finish(err error) {
	fields := c.fields()
	fields["action"] = "request"
	fields["elapsed_ms"] = time.Since(c.started).Milliseconds()
	if c.status != 0 {
		fields["status"] = c.status
	}

	entry := c.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).WithField("error_kind", KindOf(err).String()).Warn("request_failed")
		return
	}
	entry.Info("request_completed")
}
