package github

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ghdir/ghdir/internal/config"
	"github.com/ghdir/ghdir/internal/logging"
	"github.com/ghdir/ghdir/internal/request"
)

const defaultBatchLimit = 4

var errInvalidLogin = errors.New("login must be non-empty and must not contain '/'")

// Client 是用户目录的仓库层：拼装描述符、选择 TTL，并把调用交给 Pipeline。
type Client struct {
	pipeline   *request.Pipeline
	baseURL    string
	creds      Credentials
	perPage    int
	listTTL    time.Duration
	detailTTL  time.Duration
	batchLimit int
	logger     *logrus.Logger
}

// NewClient 根据 API 配置构造 Client。
func NewClient(p *request.Pipeline, cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if p == nil {
		return nil, errors.New("pipeline is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	batchLimit := cfg.Global.Workers
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}

	return &Client{
		pipeline: p,
		baseURL:  cfg.API.BaseURL,
		creds: Credentials{
			Token:     cfg.API.Token,
			UserAgent: cfg.API.UserAgent,
		},
		perPage:    cfg.API.PerPage,
		listTTL:    cfg.EffectiveTTL(cfg.API.ListTTL),
		detailTTL:  cfg.EffectiveTTL(cfg.API.DetailTTL),
		batchLimit: batchLimit,
		logger:     logger,
	}, nil
}

// PerPage 返回配置的默认分页大小。
func (c *Client) PerPage() int {
	return c.perPage
}

// ListUsers 拉取 since 之后的一页用户。perPage <= 0 时使用配置值。
func (c *Client) ListUsers(ctx context.Context, perPage, since int) ([]User, error) {
	if perPage <= 0 {
		perPage = c.perPage
	}
	if since < 0 {
		since = 0
	}
	d := withCredentials(ListUsersRequest(c.baseURL, perPage, since), c.creds)
	return request.Fetch[[]User](ctx, c.pipeline, d, c.listTTL)
}

// UserDetails 拉取单个用户的详情。
func (c *Client) UserDetails(ctx context.Context, login string) (UserDetails, error) {
	d, err := c.userDescriptor(login)
	if err != nil {
		return UserDetails{}, err
	}
	return request.Fetch[UserDetails](ctx, c.pipeline, d, c.detailTTL)
}

// UserDetailsBatch 并发拉取多个用户详情，结果与 logins 顺序一致。
// 任一失败即取消其余请求并返回第一个错误。
func (c *Client) UserDetailsBatch(ctx context.Context, logins []string) ([]UserDetails, error) {
	out := make([]UserDetails, len(logins))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batchLimit)

	for i, login := range logins {
		i, login := i, login
		g.Go(func() error {
			details, err := c.UserDetails(gctx, login)
			if err != nil {
				c.logger.WithFields(logrus.Fields{
					"action":     "user_details_batch",
					"login":      login,
					"error_kind": request.KindOf(err).String(),
				}).Debug("batch item failed")
				return err
			}
			out[i] = details
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget 删除 login 的详情缓存，下一次 UserDetails 会重新访问网络。
func (c *Client) Forget(login string) error {
	d, err := c.userDescriptor(login)
	if err != nil {
		return err
	}
	return c.pipeline.Invalidate(d)
}

func (c *Client) userDescriptor(login string) (request.Descriptor, error) {
	login = strings.TrimSpace(login)
	if login == "" || strings.ContainsAny(login, `/\`) {
		return request.Descriptor{}, request.Error{Kind: request.KindInvalidRequest, Cause: errInvalidLogin}
	}
	return withCredentials(UserRequest(c.baseURL, login), c.creds), nil
}
