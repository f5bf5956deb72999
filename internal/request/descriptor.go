package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// QueryParam 是一个有序的查询参数。
type QueryParam struct {
	Name  string
	Value string
}

// Descriptor 描述一次请求，由调用方构造，管道只读不写。
type Descriptor struct {
	BaseURL string
	Path    string
	Method  string
	Query   []QueryParam
	Headers map[string]string
	Body    []byte
}

const defaultContentType = "application/json; charset=utf-8"

var (
	errInvalidBase   = errors.New("base url must be absolute")
	errInvalidMethod = errors.New("invalid http method")
)

// URL 拼接 BaseURL 的路径与 Path，并按顺序附加查询参数。
// Method 不是合法的 HTTP token 时同样视为构建失败。
func (d Descriptor) URL() (*url.URL, error) {
	if m := d.method(); !httpguts.ValidHeaderFieldName(m) {
		return nil, fmt.Errorf("%w: %q", errInvalidMethod, m)
	}
	base, err := url.Parse(strings.TrimSpace(d.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", errInvalidBase, d.BaseURL)
	}

	joined := *base
	joined.Path = base.Path + d.Path
	joined.RawPath = ""
	joined.Fragment = ""
	joined.RawQuery = encodeOrdered(d.Query)
	if joined.Path != "" && !strings.HasPrefix(joined.Path, "/") {
		return nil, fmt.Errorf("path %q does not join base %q", d.Path, d.BaseURL)
	}

	final, err := url.Parse(joined.String())
	if err != nil {
		return nil, fmt.Errorf("parse joined url: %w", err)
	}
	return final, nil
}

// method 返回大写的 HTTP 方法，空值视为 GET。
func (d Descriptor) method() string {
	if m := strings.TrimSpace(d.Method); m != "" {
		return strings.ToUpper(m)
	}
	return http.MethodGet
}

func (d Descriptor) newRequest(ctx context.Context, u *url.URL) (*http.Request, error) {
	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.method(), u.String(), body)
	if err != nil {
		return nil, err
	}

	for key, value := range d.Headers {
		req.Header.Set(key, value)
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", defaultContentType)
	}
	return req, nil
}

func encodeOrdered(params []QueryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
