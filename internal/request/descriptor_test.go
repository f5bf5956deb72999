package request

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescriptorURL(t *testing.T) {
	d := Descriptor{
		BaseURL: "https://api.github.com",
		Path:    "/users",
		Query:   []QueryParam{{Name: "per_page", Value: "20"}, {Name: "since", Value: "0"}},
	}
	u, err := d.URL()
	require.NoError(t, err)
	require.Equal(t, "https://api.github.com/users?per_page=20&since=0", u.String())
}

func TestDescriptorURLKeepsBasePath(t *testing.T) {
	d := Descriptor{BaseURL: "https://ghe.example.com/api/v3", Path: "/users/octocat"}
	u, err := d.URL()
	require.NoError(t, err)
	require.Equal(t, "https://ghe.example.com/api/v3/users/octocat", u.String())
}

func TestDescriptorURLRejectsInvalidBase(t *testing.T) {
	for _, base := range []string{"", "::not a url", "api.github.com", "/relative/only", "https://"} {
		_, err := Descriptor{BaseURL: base, Path: "/users"}.URL()
		require.Error(t, err, "base %q", base)
	}
}

func TestDescriptorURLRejectsPathThatDoesNotJoin(t *testing.T) {
	_, err := Descriptor{BaseURL: "https://api.github.com", Path: "users"}.URL()
	require.Error(t, err)
}

func TestDescriptorURLRejectsInvalidMethod(t *testing.T) {
	for _, method := range []string{"GE T", "G\tET", "PO(ST"} {
		_, err := Descriptor{BaseURL: "https://api.github.com", Path: "/users", Method: method}.URL()
		require.ErrorIs(t, err, errInvalidMethod, "method %q", method)
	}

	_, err := Descriptor{BaseURL: "https://api.github.com", Path: "/users", Method: "patch"}.URL()
	require.NoError(t, err)
}

func TestDescriptorNewRequest(t *testing.T) {
	d := Descriptor{
		BaseURL: "https://api.github.com",
		Path:    "/graphql",
		Method:  "post",
		Headers: map[string]string{"Authorization": "Bearer t"},
		Body:    []byte(`{"q":1}`),
	}
	u, err := d.URL()
	require.NoError(t, err)

	req, err := d.newRequest(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "Bearer t", req.Header.Get("Authorization"))
	require.Equal(t, defaultContentType, req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	require.Equal(t, `{"q":1}`, string(body))
}

func TestDescriptorDefaultsToGet(t *testing.T) {
	d := Descriptor{BaseURL: "https://api.github.com", Path: "/users"}
	u, err := d.URL()
	require.NoError(t, err)
	req, err := d.newRequest(context.Background(), u)
	require.NoError(t, err)
	require.Equal(t, http.MethodGet, req.Method)
	require.Nil(t, req.Body)
	require.Empty(t, req.Header.Get("Content-Type"))
}

func TestCacheKeyIsDeterministic(t *testing.T) {
	a := Descriptor{
		BaseURL: "https://api.github.com",
		Path:    "/users",
		Query:   []QueryParam{{Name: "since", Value: "40"}, {Name: "per_page", Value: "20"}},
	}
	b := Descriptor{
		BaseURL: "HTTPS://API.GITHUB.COM",
		Path:    "/users",
		Query:   []QueryParam{{Name: "per_page", Value: "20"}, {Name: "since", Value: "40"}},
	}
	c := Descriptor{
		BaseURL: "https://api.github.com",
		Path:    "/users",
		Query:   []QueryParam{{Name: "per_page", Value: "20"}, {Name: "since", Value: "60"}},
	}

	ua, err := a.URL()
	require.NoError(t, err)
	ub, err := b.URL()
	require.NoError(t, err)
	uc, err := c.URL()
	require.NoError(t, err)

	require.Equal(t, CacheKey(ua), CacheKey(ua))
	require.Equal(t, CacheKey(ua), CacheKey(ub))
	require.NotEqual(t, CacheKey(ua), CacheKey(uc))
	require.Len(t, CacheKey(ua), 64)
	require.Regexp(t, "^[0-9a-f]{64}$", CacheKey(ua))
	require.Equal(t, "https://api.github.com/users?per_page=20&since=40", CanonicalURL(ua))
}
