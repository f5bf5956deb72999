package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/ghdir/ghdir/internal/cache"
)

// CacheHooks 将缓存内部吞掉的事件写入 logrus。key 为 SHA-256 十六进制，
// 截断后输出即可定位文件。
type CacheHooks struct {
	logger *logrus.Logger
}

var _ cache.Hooks = (*CacheHooks)(nil)

// NewCacheHooks 返回基于 logger 的 cache.Hooks 实现。
func NewCacheHooks(logger *logrus.Logger) *CacheHooks {
	return &CacheHooks{logger: logger}
}

func (h *CacheHooks) entry(key string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"action": "cache",
		"key":    shortKey(key),
	})
}

func (h *CacheHooks) Stored(key string) {
	h.entry(key).Debug("cache_stored")
}

func (h *CacheHooks) Hit(key string) {
	h.entry(key).Debug("cache_hit")
}

func (h *CacheHooks) Evicted(key, reason string) {
	level := logrus.DebugLevel
	if reason != cache.ReasonExpired {
		level = logrus.WarnLevel
	}
	h.entry(key).WithField("reason", reason).Log(level, "cache_evicted")
}

func (h *CacheHooks) WriteFailed(key string, err error) {
	h.entry(key).WithError(err).Warn("cache_write_failed")
}

func (h *CacheHooks) ReadFailed(key string, err error) {
	h.entry(key).WithError(err).Warn("cache_read_failed")
}

func shortKey(key string) string {
	if len(key) > 16 {
		return key[:16]
	}
	return key
}
