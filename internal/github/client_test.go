package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghdir/ghdir/internal/cache"
	"github.com/ghdir/ghdir/internal/config"
	"github.com/ghdir/ghdir/internal/request"
)

// directoryStub 模拟 GitHub 用户目录，记录每个路径的访问次数与请求头。
type directoryStub struct {
	mu      sync.Mutex
	hits    map[string]int
	headers http.Header
	server  *httptest.Server
}

func newDirectoryStub(t *testing.T) *directoryStub {
	t.Helper()
	stub := &directoryStub{hits: make(map[string]int)}
	stub.server = httptest.NewServer(http.HandlerFunc(stub.serve))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *directoryStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.headers = r.Header.Clone()
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/users":
		if r.URL.Query().Get("since") == "2" {
			_ = json.NewEncoder(w).Encode([]User{{Login: "defunkt", ID: 3}})
			return
		}
		_ = json.NewEncoder(w).Encode([]User{
			{Login: "mojombo", ID: 1, AvatarURL: "https://avatars.example/1", HTMLURL: "https://github.com/mojombo"},
			{Login: "pjhyett", ID: 2},
		})
	case r.URL.Path == "/users/ghost":
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	case strings.HasPrefix(r.URL.Path, "/users/"):
		login := strings.TrimPrefix(r.URL.Path, "/users/")
		_, _ = w.Write([]byte(`{"login":"` + login + `","avatar_url":"a","blog":"b","location":null,"followers":3,"following":4,"name":"N"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *directoryStub) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *directoryStub) LastHeaders() http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers
}

func newTestClient(t *testing.T, stub *directoryStub, token string) *Client {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	p, err := request.NewPipeline(request.Options{Client: stub.server.Client(), Store: store, Completion: request.Inline})
	require.NoError(t, err)
	t.Cleanup(p.Close)

	cfg := &config.Config{
		Global: config.GlobalConfig{CacheTTL: config.Duration(time.Hour), Workers: 2},
		API: config.APIConfig{
			BaseURL:   stub.server.URL,
			Token:     token,
			UserAgent: "ghdir-test",
			PerPage:   20,
			DetailTTL: config.Duration(2 * time.Hour),
		},
	}
	client, err := NewClient(p, cfg, nil)
	require.NoError(t, err)
	return client
}

func TestClientListUsersPagesAndCaches(t *testing.T) {
	stub := newDirectoryStub(t)
	client := newTestClient(t, stub, "")

	page, err := client.ListUsers(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "mojombo", page[0].Login)
	require.Equal(t, "https://github.com/mojombo", page[0].HTMLURL)

	next, err := client.ListUsers(context.Background(), 0, NextSince(page))
	require.NoError(t, err)
	require.Equal(t, []User{{Login: "defunkt", ID: 3}}, next)

	_, err = client.ListUsers(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Equal(t, 2, stub.Hits("/users"), "first page must come from cache on the second call")

	headers := stub.LastHeaders()
	require.Equal(t, acceptHeader, headers.Get("Accept"))
	require.Equal(t, "ghdir-test", headers.Get("User-Agent"))
	require.Empty(t, headers.Get("Authorization"))
}

func TestClientUserDetails(t *testing.T) {
	stub := newDirectoryStub(t)
	client := newTestClient(t, stub, "t0ken")

	details, err := client.UserDetails(context.Background(), "octocat")
	require.NoError(t, err)
	require.Equal(t, "octocat", details.Login)
	require.Nil(t, details.Location)
	require.Equal(t, 3, details.Followers)
	require.Equal(t, "Bearer t0ken", stub.LastHeaders().Get("Authorization"))

	_, err = client.UserDetails(context.Background(), "ghost")
	require.ErrorIs(t, err, request.ErrNotFound)

	_, err = client.UserDetails(context.Background(), "a/b")
	require.ErrorIs(t, err, request.ErrInvalidRequest)
	require.ErrorIs(t, client.Forget(""), request.ErrInvalidRequest)
}

func TestClientForgetForcesRefetch(t *testing.T) {
	stub := newDirectoryStub(t)
	client := newTestClient(t, stub, "")

	for i := 0; i < 2; i++ {
		_, err := client.UserDetails(context.Background(), "octocat")
		require.NoError(t, err)
	}
	require.Equal(t, 1, stub.Hits("/users/octocat"))

	require.NoError(t, client.Forget("octocat"))
	_, err := client.UserDetails(context.Background(), "octocat")
	require.NoError(t, err)
	require.Equal(t, 2, stub.Hits("/users/octocat"))
}

func TestClientUserDetailsBatch(t *testing.T) {
	stub := newDirectoryStub(t)
	client := newTestClient(t, stub, "")

	logins := []string{"a", "b", "c", "d", "e"}
	got, err := client.UserDetailsBatch(context.Background(), logins)
	require.NoError(t, err)
	require.Len(t, got, len(logins))
	for i, login := range logins {
		require.Equal(t, login, got[i].Login)
	}

	_, err = client.UserDetailsBatch(context.Background(), []string{"a", "ghost"})
	require.ErrorIs(t, err, request.ErrNotFound)
}

func TestNewClientRequiresDependencies(t *testing.T) {
	_, err := NewClient(nil, &config.Config{}, nil)
	require.Error(t, err)

	store, err := cache.NewStore(t.TempDir())
	require.NoError(t, err)
	p, err := request.NewPipeline(request.Options{Client: http.DefaultClient, Store: store, Completion: request.Inline})
	require.NoError(t, err)
	_, err = NewClient(p, nil, nil)
	require.Error(t, err)
}
