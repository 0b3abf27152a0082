// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a Client at an httptest server instead of the real
// GitHub API, mirroring this corpus's pattern of injecting BaseURL into a
// generated API client (cf. grafana_integration_test.go's server.URL swap).
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := New("", time.Second, slog.Default())
	base, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	c.gh.BaseURL = base

	return c, server
}

func TestCreateFork_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello/forks", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"html_url": "https://github.com/mine/hello", "full_name": "mine/hello"}`)
	})

	result, err := c.CreateFork(context.Background(), "octocat", "hello", "")
	require.NoError(t, err)
	assert.False(t, result.AlreadyExists)
	assert.Equal(t, "https://github.com/mine/hello", result.URL)
}

func TestCreateFork_AlreadyExists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "Fork", "code": "already_exists"}]}`)
	})

	result, err := c.CreateFork(context.Background(), "octocat", "hello", "mine")
	require.NoError(t, err)
	assert.True(t, result.AlreadyExists)
	assert.Equal(t, "https://github.com/mine/octocat-hello", result.URL)
}

func TestCreateFork_ValidationErrorNotAlreadyExists(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message": "Validation Failed", "errors": [{"resource": "Fork", "code": "custom", "message": "boom"}]}`)
	})

	_, err := c.CreateFork(context.Background(), "octocat", "hello", "")
	require.Error(t, err)
}

func TestCreateFork_Unauthorized(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message": "Bad credentials"}`)
	})

	_, err := c.CreateFork(context.Background(), "octocat", "hello", "")
	require.Error(t, err)
}

func TestSetVisibility_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octocat/hello", r.URL.Path)
		assert.Equal(t, http.MethodPatch, r.Method)
		fmt.Fprint(w, `{"full_name": "octocat/hello", "private": true}`)
	})

	err := c.SetVisibility(context.Background(), "octocat", "hello", true)
	require.NoError(t, err)
}

func TestGetRepo_NotFound(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	_, err := c.GetRepo(context.Background(), "octocat", "missing")
	require.Error(t, err)
}

func TestGetRepo_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name": "octocat/hello", "private": false, "html_url": "https://github.com/octocat/hello"}`)
	})

	meta, err := c.GetRepo(context.Background(), "octocat", "hello")
	require.NoError(t, err)
	assert.Equal(t, "octocat/hello", meta.FullName)
	assert.False(t, meta.Private)
}
