// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package github implements internal/provider.Client against the GitHub
// REST API via go-github, the library this corpus's own GitHub
// integrations (pkg/github) use for the same surface. Authentication is
// an oauth2 static-token source, never logged.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/provider"
)

// MaxRateLimitWaitDefault is the ceiling on how long the client will pause
// for a rate-limited request before surfacing PROVIDER_RATE_LIMIT, per §4.7.
const MaxRateLimitWaitDefault = 60 * time.Second

// RequestTimeout bounds every individual HTTP call, per §4.7.
const RequestTimeout = 30 * time.Second

const userAgent = "gitcache/1.0 (+https://github.com/archmagece/gitcache)"

// Client is the GitHub implementation of provider.Client.
type Client struct {
	gh             *github.Client
	maxRateLimitWait time.Duration
	logger         *slog.Logger
}

var _ provider.Client = (*Client)(nil)

// New builds a Client authenticated with token. An empty token yields an
// unauthenticated client, which the caller should reject with
// PROVIDER_AUTH before any write operation if credentials are required.
func New(token string, maxRateLimitWait time.Duration, logger *slog.Logger) *Client {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}

	gh := github.NewClient(httpClient)
	gh.UserAgent = userAgent

	if maxRateLimitWait <= 0 {
		maxRateLimitWait = MaxRateLimitWaitDefault
	}

	return &Client{gh: gh, maxRateLimitWait: maxRateLimitWait, logger: logger}
}

// CreateFork implements §4.7's create_fork, including the idempotent
// "already forked" reconciliation described in §4.7 and the Open Question
// of §9: only an HTTP 422 whose error payload carries the "already_exists"
// marker is treated as AlreadyExists; any other 422 is surfaced as an error.
func (c *Client) CreateFork(ctx context.Context, owner, name, destinationNamespace string) (provider.ForkResult, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	opts := &github.RepositoryCreateForkOptions{}
	if destinationNamespace != "" && destinationNamespace != owner {
		opts.Organization = destinationNamespace
		opts.Name = fmt.Sprintf("%s-%s", owner, name)
	}

	repo, resp, err := c.gh.Repositories.CreateFork(ctx, owner, name, opts)
	if err == nil {
		return provider.ForkResult{URL: repo.GetHTMLURL()}, nil
	}

	// go-github surfaces a successful, still-in-progress fork creation as
	// an AcceptedError (HTTP 202) rather than a plain error; the fork record
	// in its payload carries the fork's URL.
	var accepted *github.AcceptedError
	if errors.As(err, &accepted) {
		if u := repo.GetHTMLURL(); u != "" {
			return provider.ForkResult{URL: u}, nil
		}
		return provider.ForkResult{URL: derivedForkURL(owner, name, destinationNamespace)}, nil
	}

	if waited, waitErr := c.waitOutRateLimit(ctx, resp, err); waitErr != nil {
		return provider.ForkResult{}, waitErr
	} else if waited {
		return c.CreateFork(ctx, owner, name, destinationNamespace)
	}

	if alreadyExists(err) {
		return provider.ForkResult{
			URL:           derivedForkURL(owner, name, destinationNamespace),
			AlreadyExists: true,
		}, nil
	}

	if resp != nil && resp.StatusCode == http.StatusUnauthorized {
		return provider.ForkResult{}, gcerrors.NewStageError("provider", gcerrors.KindProviderAuth, owner+"/"+name, err)
	}

	return provider.ForkResult{}, gcerrors.NewStageError("provider", gcerrors.KindNetworkFailed, owner+"/"+name, err)
}

// derivedForkURL synthesizes the expected fork URL per §4.7: the derived
// name is "owner-name" when destinationNamespace differs from owner, else
// just "name".
func derivedForkURL(owner, name, destinationNamespace string) string {
	ns := destinationNamespace
	if ns == "" {
		ns = owner
	}
	derivedName := name
	if ns != owner {
		derivedName = fmt.Sprintf("%s-%s", owner, name)
	}
	return fmt.Sprintf("https://github.com/%s/%s", ns, derivedName)
}

// alreadyExists distinguishes a 422 carrying GitHub's "already_exists"
// error code from any other validation error, per §9's Open Question.
func alreadyExists(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	for _, e := range ghErr.Errors {
		if e.Code == "already_exists" {
			return true
		}
	}
	return false
}

// SetVisibility implements §4.7's set_visibility.
func (c *Client) SetVisibility(ctx context.Context, owner, name string, private bool) error {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	_, resp, err := c.gh.Repositories.Edit(ctx, owner, name, &github.Repository{Private: &private})
	if err != nil {
		if waited, waitErr := c.waitOutRateLimit(ctx, resp, err); waitErr != nil {
			return waitErr
		} else if waited {
			return c.SetVisibility(ctx, owner, name, private)
		}
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return gcerrors.NewStageError("provider", gcerrors.KindProviderAuth, owner+"/"+name, err)
		}
		return gcerrors.NewStageError("provider", gcerrors.KindNetworkFailed, owner+"/"+name, err)
	}
	return nil
}

// GetRepo implements §4.7's get_repo.
func (c *Client) GetRepo(ctx context.Context, owner, name string) (provider.RepoMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		if waited, waitErr := c.waitOutRateLimit(ctx, resp, err); waitErr != nil {
			return provider.RepoMeta{}, waitErr
		} else if waited {
			return c.GetRepo(ctx, owner, name)
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return provider.RepoMeta{}, gcerrors.NewStageError("provider", gcerrors.KindRepoCorrupt, owner+"/"+name,
				fmt.Errorf("repository not found"))
		}
		return provider.RepoMeta{}, gcerrors.NewStageError("provider", gcerrors.KindNetworkFailed, owner+"/"+name, err)
	}

	return provider.RepoMeta{
		FullName: repo.GetFullName(),
		Private:  repo.GetPrivate(),
		HTMLURL:  repo.GetHTMLURL(),
	}, nil
}

// waitOutRateLimit implements §4.7's rate-limit pause-then-fail semantics:
// if remaining requests are exhausted and the reset moment is within
// maxRateLimitWait, it sleeps until reset and reports true so the caller
// retries once; otherwise it returns PROVIDER_RATE_LIMIT.
func (c *Client) waitOutRateLimit(ctx context.Context, resp *github.Response, err error) (waited bool, outErr error) {
	var rlErr *github.RateLimitError
	if !errors.As(err, &rlErr) {
		return false, nil
	}

	wait := time.Until(rlErr.Rate.Reset.Time)
	if wait <= 0 {
		return false, nil
	}
	if wait > c.maxRateLimitWait {
		return false, gcerrors.NewStageError("provider", gcerrors.KindProviderRateLimit, "",
			fmt.Errorf("rate limit resets in %s, exceeding max wait %s", wait, c.maxRateLimitWait))
	}

	if c.logger != nil {
		c.logger.Warn("pausing for GitHub rate limit reset",
			"component", "provider", "operation", "rate_limit_wait", "wait", wait)
	}

	select {
	case <-ctx.Done():
		return false, gcerrors.NewStageError("provider", gcerrors.KindCanceled, "", ctx.Err())
	case <-time.After(wait):
	}
	return true, nil
}
