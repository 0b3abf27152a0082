// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package identity parses repository URLs across transport forms into a
// canonical (host, owner, name) identity and classifies the hosting
// provider. It is a pure package: no I/O, no dependency on any other
// gitcache component.
package identity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/archmagece/gitcache/internal/gcerrors"
)

// ProviderClass names the hosting-provider family an Identity belongs to.
type ProviderClass string

const (
	ProviderGitHub  ProviderClass = "github"
	ProviderUnknown ProviderClass = "unknown"
)

// Identity is the canonical (host, owner, name) triple naming a repository.
// Host is lowercased DNS-form; Owner and Name are case-preserved.
type Identity struct {
	Host  string
	Owner string
	Name  string
}

// Equal compares two identities case-insensitively on Owner/Name for
// provider-aware hosts, matching §3's "compared case-insensitively for
// provider-aware hosts".
func (id Identity) Equal(other Identity) bool {
	if !strings.EqualFold(id.Host, other.Host) {
		return false
	}
	if Classify(id.Host) == ProviderUnknown {
		return id.Owner == other.Owner && id.Name == other.Name
	}
	return strings.EqualFold(id.Owner, other.Owner) && strings.EqualFold(id.Name, other.Name)
}

// String renders the identity as host/owner/name, the form used in logs and
// error messages; on-disk paths are derived by the pathplan package.
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%s", id.Host, id.Owner, id.Name)
}

// Class reports the provider family of this identity's host.
func (id Identity) Class() ProviderClass {
	return Classify(id.Host)
}

// HTTPSURL renders the identity as a canonical HTTPS fetch URL, per
// spec.md:34's "origin_url... normalized to a canonical fetch form".
// Every remote this repository programs (origin, upstream, and the
// record it reports back to the caller) is derived from this rather than
// the caller's raw input, so an SSH or scp-like clone URL never leaks
// into a programmed remote.
func (id Identity) HTTPSURL() string {
	return fmt.Sprintf("https://%s/%s/%s", id.Host, id.Owner, id.Name)
}

var knownProviders = map[string]ProviderClass{
	"github.com": ProviderGitHub,
}

// Classify maps a lowercased host to its provider family.
func Classify(host string) ProviderClass {
	if class, ok := knownProviders[strings.ToLower(host)]; ok {
		return class
	}
	return ProviderUnknown
}

var (
	httpsPattern     = regexp.MustCompile(`^https?://([^/]+)/([^/]+)/([^/]+?)(\.git)?/?$`)
	scpPattern       = regexp.MustCompile(`^([^@]+)@([^:]+):([^/]+)/([^/]+?)(\.git)?/?$`)
	sshPattern       = regexp.MustCompile(`^ssh://([^@]+@)?([^/:]+)(:[0-9]+)?/([^/]+)/([^/]+?)(\.git)?/?$`)
	gitSSHPattern    = regexp.MustCompile(`^git\+ssh://([^@]+@)?([^/:]+)(:[0-9]+)?/([^/]+)/([^/]+?)(\.git)?/?$`)
	segmentForbidden = regexp.MustCompile(`[\\/]|\.\.`)
)

// Parse normalizes a repository URL (HTTPS, SSH scp-like, explicit ssh://,
// or git+ssh://) into a canonical Identity. It fails with
// gcerrors.ErrURLInvalid on malformed input, per §4.1.
func Parse(raw string) (Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, invalid(raw, "empty URL")
	}

	var host, owner, name string

	switch {
	case httpsPattern.MatchString(raw):
		m := httpsPattern.FindStringSubmatch(raw)
		host, owner, name = m[1], m[2], m[3]
	case gitSSHPattern.MatchString(raw):
		m := gitSSHPattern.FindStringSubmatch(raw)
		host, owner, name = m[2], m[4], m[5]
	case sshPattern.MatchString(raw):
		m := sshPattern.FindStringSubmatch(raw)
		host, owner, name = m[2], m[4], m[5]
	case scpPattern.MatchString(raw):
		m := scpPattern.FindStringSubmatch(raw)
		host, owner, name = m[2], m[3], m[4]
	default:
		return Identity{}, invalid(raw, "unrecognized URL form")
	}

	host = strings.ToLower(host)
	owner = strings.TrimSuffix(owner, ".git")
	name = strings.TrimSuffix(name, ".git")

	if host == "" || owner == "" || name == "" {
		return Identity{}, invalid(raw, "empty host, owner, or name segment")
	}
	if segmentForbidden.MatchString(owner) || segmentForbidden.MatchString(name) {
		return Identity{}, invalid(raw, "owner or name contains a path separator or '..'")
	}

	return Identity{Host: host, Owner: owner, Name: name}, nil
}

func invalid(raw, reason string) error {
	return gcerrors.NewStageError("parse", gcerrors.KindURLInvalid, raw, fmt.Errorf("%s", reason))
}
