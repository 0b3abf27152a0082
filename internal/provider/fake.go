// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package provider

import "context"

// Fake is an in-memory provider.Client test double. Tests script its
// behavior by setting the exported fields directly before exercising it.
type Fake struct {
	ForkResult   ForkResult
	ForkErr      error
	VisibilityErr error
	Repo         RepoMeta
	RepoErr      error

	ForkCalls []string
}

var _ Client = (*Fake)(nil)

func (f *Fake) CreateFork(_ context.Context, owner, name, destinationNamespace string) (ForkResult, error) {
	f.ForkCalls = append(f.ForkCalls, owner+"/"+name+"->"+destinationNamespace)
	return f.ForkResult, f.ForkErr
}

func (f *Fake) SetVisibility(_ context.Context, _, _ string, _ bool) error {
	return f.VisibilityErr
}

func (f *Fake) GetRepo(_ context.Context, _, _ string) (RepoMeta, error) {
	return f.Repo, f.RepoErr
}
