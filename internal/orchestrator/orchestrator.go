// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package orchestrator sequences the pipeline of §2 for the clone
// operation and dispatches status against persisted cache state. It owns
// the clone state machine and its compensations, per §4.9: the lock is
// acquired once and held across cache creation, both checkout builds, and
// remote programming, since none of those steps reacquire it.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/archmagece/gitcache/internal/cache"
	"github.com/archmagece/gitcache/internal/checkout"
	"github.com/archmagece/gitcache/internal/config"
	"github.com/archmagece/gitcache/internal/gcerrors"
	"github.com/archmagece/gitcache/internal/identity"
	"github.com/archmagece/gitcache/internal/lock"
	"github.com/archmagece/gitcache/internal/pathplan"
	"github.com/archmagece/gitcache/internal/provider"
	"github.com/archmagece/gitcache/internal/remotes"
	"github.com/archmagece/gitcache/internal/runner"
)

// State names the clone state machine's states, per §4.9.
type State string

const (
	StateParsed             State = "Parsed"
	StateLocked             State = "Locked"
	StateCacheReady         State = "CacheReady"
	StateForked             State = "Forked"
	StateReadonlyBuilt      State = "ReadonlyBuilt"
	StateModifiableBuilt    State = "ModifiableBuilt"
	StateRemotesProgrammed  State = "RemotesProgrammed"
	StateDone               State = "Done"
)

// RepoRecord is the in-memory record the Orchestrator builds and returns
// for one clone request, per §3's Repository record.
type RepoRecord struct {
	Identity       identity.Identity
	OriginURL      string
	ForkURL        string
	Strategy       checkout.Strategy
	Depth          int
	CachePath      string
	ReadonlyPath   string
	ModifiablePath string
	LastSync       time.Time
	ProviderClass  identity.ProviderClass
}

// CloneRequest carries the flags named in §6's clone command surface.
type CloneRequest struct {
	URL       string
	Strategy  checkout.Strategy
	Depth     int
	Force     bool
	Recursive bool
	Org       string
	Private   bool
	// Fork requests provider fork reconciliation; ignored when Provider is nil.
	Fork bool
}

// StateError reports the state the pipeline reached before failing, so the
// CLI can report "stage, kind, one-line cause" per §7.
type StateError struct {
	State State
	Cause error
}

func (e *StateError) Error() string { return fmt.Sprintf("%s: %v", e.State, e.Cause) }
func (e *StateError) Unwrap() error { return e.Cause }

// Orchestrator wires the components of §2 together for one request.
type Orchestrator struct {
	Config   config.Snapshot
	Runner   runner.Runner
	Cache    *cache.Engine
	Checkout *checkout.Builder
	Remotes  *remotes.Programmer
	Provider provider.Client // nil when no provider token is configured
	Logger   *slog.Logger
}

// Clone runs the state machine of §4.9: Parsed → Locked → CacheReady →
// Forked? → ReadonlyBuilt → ModifiableBuilt → RemotesProgrammed → Done.
// On failure it runs the compensation defined for the state it reached.
func (o *Orchestrator) Clone(ctx context.Context, req CloneRequest) (*RepoRecord, error) {
	id, err := identity.Parse(req.URL)
	if err != nil {
		return nil, &StateError{StateParsed, err}
	}

	plan, err := pathplan.Compute(id, pathplan.Options{
		CacheRoot:     o.Config.CacheRoot,
		CheckoutRoot:  o.Config.CheckoutRoot,
		ForkNamespace: o.Config.ForkNamespace,
	})
	if err != nil {
		return nil, &StateError{StateParsed, err}
	}

	canonicalURL := id.HTTPSURL()

	record := &RepoRecord{
		Identity:       id,
		OriginURL:      canonicalURL,
		Strategy:       req.Strategy,
		Depth:          req.Depth,
		CachePath:      plan.CachePath,
		ReadonlyPath:   plan.ReadonlyPath,
		ModifiablePath: plan.ModifiablePath,
		ProviderClass:  id.Class(),
	}

	handle, err := lock.Acquire(ctx, plan.LockPath, o.Config.LockTimeout)
	if err != nil {
		return nil, &StateError{StateParsed, err}
	}
	defer handle.Release()

	cacheResult, err := o.Cache.Update(ctx, plan.CachePath, canonicalURL, o.Config.MinFreeMB)
	if err != nil {
		// CacheReady -> Locked: Update already restored its own backup on
		// failure; nothing else to compensate here but releasing the lock,
		// which defer already does.
		return nil, &StateError{StateLocked, err}
	}
	if cacheResult.QuarantinedFrom != "" {
		o.log("quarantined prior cache", record, "destination", cacheResult.QuarantinedFrom)
	}
	if t, ok := cache.ReadSyncMarker(plan.CachePath); ok {
		record.LastSync = t
	}

	if req.Fork && o.Provider != nil && id.Class() == identity.ProviderGitHub {
		destNamespace := req.Org
		if destNamespace == "" {
			destNamespace = o.Config.ForkNamespace
		}
		forkResult, err := o.Provider.CreateFork(ctx, id.Owner, id.Name, destNamespace)
		if err != nil {
			// Forked? is non-compensating: the cache and its lock are still
			// released normally; the clone simply proceeds without a fork.
			o.log("fork reconciliation failed, continuing without a fork", record, "error", err)
		} else {
			record.ForkURL = forkResult.URL
			if req.Private {
				// The fork is named owner-name when it lives in another
				// namespace, matching the name CreateFork requests.
				forkOwner := destOwner(destNamespace, id)
				forkName := id.Name
				if forkOwner != id.Owner {
					forkName = id.Owner + "-" + id.Name
				}
				if err := o.Provider.SetVisibility(ctx, forkOwner, forkName, true); err != nil {
					o.log("set_visibility failed", record, "error", err)
				}
			}
		}
	}

	// A non-empty target that is not forced over is refused by Build
	// untouched, so it is not a partial checkout and is never removed.
	readonlyEntries, _ := os.ReadDir(plan.ReadonlyPath)
	keepReadonly := !req.Force && len(readonlyEntries) > 0
	if err := o.buildCheckout(ctx, plan.ReadonlyPath, plan, req, canonicalURL, true); err != nil {
		// ReadonlyBuilt -> CacheReady: remove the partial read-only directory;
		// the cache itself is retained.
		if !keepReadonly {
			_ = os.RemoveAll(plan.ReadonlyPath)
		}
		return nil, &StateError{StateCacheReady, err}
	}

	modifiableEntries, _ := os.ReadDir(plan.ModifiablePath)
	keepModifiable := !req.Force && len(modifiableEntries) > 0
	if err := o.buildCheckout(ctx, plan.ModifiablePath, plan, req, canonicalURL, false); err != nil {
		// ModifiableBuilt -> ReadonlyBuilt: remove the partial modifiable
		// directory only; the read-only checkout is retained.
		if !keepModifiable {
			_ = os.RemoveAll(plan.ModifiablePath)
		}
		return nil, &StateError{StateReadonlyBuilt, err}
	}

	if o.Remotes != nil {
		// The mirror remotes use the fork's SSH form; the provider reports
		// the fork's HTTPS page URL.
		forkSSH := record.ForkURL
		if forkID, err := identity.Parse(record.ForkURL); err == nil {
			forkSSH = fmt.Sprintf("git@%s:%s/%s.git", forkID.Host, forkID.Owner, forkID.Name)
		}
		rplan := remotes.Plan{
			UpstreamURL:    canonicalURL,
			ForkURL:        forkSSH,
			LocalMirrorSSH: o.Config.LocalMirrorSSH,
		}
		if err := o.Remotes.Program(ctx, plan.ModifiablePath, rplan); err != nil {
			return nil, &StateError{StateModifiableBuilt, err}
		}
	}

	o.log("clone complete", record)
	return record, nil
}

func (o *Orchestrator) buildCheckout(ctx context.Context, target string, plan pathplan.Plan, req CloneRequest, originURL string, readOnly bool) error {
	return o.Checkout.Build(ctx, checkout.Request{
		TargetPath: target,
		CachePath:  plan.CachePath,
		OriginURL:  originURL,
		Strategy:   req.Strategy,
		Depth:      req.Depth,
		Force:      req.Force,
		Recursive:  req.Recursive,
		ReadOnly:   readOnly,
	})
}

func destOwner(namespace string, id identity.Identity) string {
	if namespace != "" {
		return namespace
	}
	return id.Owner
}

func (o *Orchestrator) log(msg string, record *RepoRecord, kv ...interface{}) {
	if o.Logger == nil {
		return
	}
	args := append([]interface{}{"component", "orchestrator", "identity", record.Identity.String()}, kv...)
	o.Logger.Info(msg, args...)
}

// StatusResult is the read-only snapshot status reports, per SPEC_FULL.md
// §6's supplemented status command.
type StatusResult struct {
	Identity        identity.Identity
	CacheExists     bool
	CacheValid      bool
	LastSync        time.Time
	ReadonlyExists  bool
	ModifiableExists bool
}

// Status reports the on-disk state for url without taking any lock, per
// §4.9's "list and status do not take locks".
func (o *Orchestrator) Status(_ context.Context, url string) (*StatusResult, error) {
	id, err := identity.Parse(url)
	if err != nil {
		return nil, &StateError{StateParsed, err}
	}

	plan, err := pathplan.Compute(id, pathplan.Options{
		CacheRoot:     o.Config.CacheRoot,
		CheckoutRoot:  o.Config.CheckoutRoot,
		ForkNamespace: o.Config.ForkNamespace,
	})
	if err != nil {
		return nil, &StateError{StateParsed, err}
	}

	result := &StatusResult{Identity: id}

	if info, err := os.Stat(plan.CachePath); err == nil && info.IsDir() {
		result.CacheExists = true
		if _, err := os.Stat(plan.CachePath + "/HEAD"); err == nil {
			result.CacheValid = true
		}
		if t, ok := cache.ReadSyncMarker(plan.CachePath); ok {
			result.LastSync = t
		}
	}

	if info, err := os.Stat(plan.ReadonlyPath); err == nil && info.IsDir() {
		result.ReadonlyExists = true
	}
	if info, err := os.Stat(plan.ModifiablePath); err == nil && info.IsDir() {
		result.ModifiableExists = true
	}

	return result, nil
}

// ExitCode maps an error returned by Clone (or any pipeline stage) to the
// process exit codes named in §6.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stageErr *gcerrors.StageError
	if !errors.As(err, &stageErr) {
		return 1
	}
	switch stageErr.Kind {
	case gcerrors.KindURLInvalid:
		return 2
	case gcerrors.KindNetworkFailed, gcerrors.KindNetworkTransient:
		return 3
	case gcerrors.KindProviderAuth:
		return 4
	case gcerrors.KindLockTimeout:
		return 5
	case gcerrors.KindDiskFull:
		return 6
	default:
		return 1
	}
}
