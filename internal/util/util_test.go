package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeUserAgent(t *testing.T) {
	assert.Equal(t, "Continuum", NormalizeUserAgent("Continuum/0.1 (+https://github.com/ppiankov/continuum)"))
	assert.Equal(t, "", NormalizeUserAgent(""))
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	var robotsHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits++
			fmt.Fprint(w, "User-agent: Continuum\nDisallow: /private\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRobotsChecker("Continuum/0.1", srv.Client())
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, srv.URL+"/stories/1.html")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = rc.CanFetch(ctx, srv.URL+"/private/2.html")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, 1, robotsHits, "robots.txt should be fetched once per origin")
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rc := NewRobotsChecker("Continuum/0.1", srv.Client())
	allowed, _, err := rc.CanFetch(context.Background(), srv.URL+"/story.txt")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsChecker_RejectsNonHTTP(t *testing.T) {
	rc := NewRobotsChecker("Continuum/0.1", nil)
	_, _, err := rc.CanFetch(context.Background(), "file:///etc/passwd")
	assert.Error(t, err)
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://proxy.local:3128", "", "internal.example")

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/story", nil)
	u, err := fn(req)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "proxy.local:3128", u.Host)

	req, _ = http.NewRequest(http.MethodGet, "http://internal.example/story", nil)
	u, err = fn(req)
	require.NoError(t, err)
	assert.Nil(t, u, "no_proxy host must bypass the proxy")
}
