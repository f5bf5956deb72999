package request

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// CacheKey 对规范化 URL 做 SHA-256，输出小写十六进制，可直接作为缓存文件名。
func CacheKey(u *url.URL) string {
	sum := sha256.Sum256([]byte(CanonicalURL(u)))
	return hex.EncodeToString(sum[:])
}

// CanonicalURL 输出 scheme://host/path?query，查询参数按名称再按值排序，
// 因此参数顺序不同的同一请求映射到同一个 key。
func CanonicalURL(u *url.URL) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(u.EscapedPath())

	query := u.Query()
	if len(query) == 0 {
		return b.String()
	}

	names := make([]string, 0, len(query))
	for name := range query {
		names = append(names, name)
	}
	sort.Strings(names)

	b.WriteByte('?')
	for i, name := range names {
		values := append([]string(nil), query[name]...)
		sort.Strings(values)
		for j, value := range values {
			if i > 0 || j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(name))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}
