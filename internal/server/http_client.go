package server

import (
	"net"
	"net/http"
	"time"

	"github.com/ghdir/ghdir/internal/config"
)

// 默认请求超时，与配置缺省值保持一致。
const defaultRequestTimeout = 10 * time.Second

// Shared HTTP transport tunings，复用长连接并集中配置超时。
var defaultTransport = &http.Transport{
	Proxy:                 http.ProxyFromEnvironment,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   16,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   5 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ForceAttemptHTTP2:     true,
	DialContext: (&net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
}

// NewUpstreamClient 返回共享 http.Client，所有 API 请求都经由它发出。
// 超时覆盖从拨号到读完响应体的整个过程。
func NewUpstreamClient(cfg *config.Config) *http.Client {
	timeout := defaultRequestTimeout
	if cfg != nil && cfg.Global.RequestTimeout.DurationValue() > 0 {
		timeout = cfg.Global.RequestTimeout.DurationValue()
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: defaultTransport.Clone(),
	}
}
