package github

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ghdir/ghdir/internal/request"
)

const (
	acceptHeader     = "application/vnd.github+json"
	defaultUserAgent = "ghdir"
)

// Credentials 决定每个请求附带的公共头。
type Credentials struct {
	Token     string
	UserAgent string
}

func (c Credentials) headers() map[string]string {
	agent := strings.TrimSpace(c.UserAgent)
	if agent == "" {
		agent = defaultUserAgent
	}
	h := map[string]string{
		"Accept":     acceptHeader,
		"User-Agent": agent,
	}
	if token := strings.TrimSpace(c.Token); token != "" {
		h["Authorization"] = "Bearer " + token
	}
	return h
}

// ListUsersRequest 构造 GET /users?per_page=&since=。
func ListUsersRequest(base string, perPage, since int) request.Descriptor {
	return request.Descriptor{
		BaseURL: base,
		Path:    "/users",
		Method:  http.MethodGet,
		Query: []request.QueryParam{
			{Name: "per_page", Value: strconv.Itoa(perPage)},
			{Name: "since", Value: strconv.Itoa(since)},
		},
		Headers: Credentials{}.headers(),
	}
}

// UserRequest 构造 GET /users/{login}。login 按原样作为单个路径段，由调用方保证不含 '/'。
func UserRequest(base, login string) request.Descriptor {
	return request.Descriptor{
		BaseURL: base,
		Path:    "/users/" + login,
		Method:  http.MethodGet,
		Headers: Credentials{}.headers(),
	}
}

func withCredentials(d request.Descriptor, creds Credentials) request.Descriptor {
	d.Headers = creds.headers()
	return d
}
