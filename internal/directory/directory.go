// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package directory resolves user identifiers and email addresses
// against an organizational domain's remote user directory.
//
// The full roster is fetched lazily on first use, once per Resolver.
// A new Resolver is required to observe roster changes.
package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// RawUser is one entry of the remote directory listing.  Emails
// carries the full address listing, the primary address included.
type RawUser struct {
	ID           string
	PrimaryEmail string
	Emails       []string
}

// Source lists an organizational domain's users page by page.  An
// empty pageToken requests the first page; an empty returned token
// means there are no further pages.
type Source interface {
	ListUsers(ctx context.Context, domain, pageToken string) ([]RawUser, string, error)
}

// User is one resolved directory user.  The primary address never
// appears in the alias set.
type User struct {
	ID      string
	Primary string
	Aliases []string
}

type roster struct {
	users []*User
	byID  map[string]*User
}

// Resolver answers identifier and email address queries for one
// organizational domain.
type Resolver struct {
	src    Source
	domain string

	group  singleflight.Group
	mu     sync.Mutex
	roster *roster
}

// New returns a resolver for the given domain.  Nothing is fetched
// until the first query.
func New(src Source, domain string) *Resolver {
	return &Resolver{src: src, domain: domain}
}

// Domain returns the organizational domain the resolver serves.
func (r *Resolver) Domain() string {
	return r.domain
}

// resolve returns the memoized roster, fetching it on first use.  The
// singleflight group guarantees concurrent first queries trigger
// exactly one listing.  A failed fetch leaves the resolver
// unresolved, so a later query retries from scratch.
func (r *Resolver) resolve(ctx context.Context) (*roster, error) {
	r.mu.Lock()
	ro := r.roster
	r.mu.Unlock()
	if ro != nil {
		return ro, nil
	}

	v, err, _ := r.group.Do("roster", func() (interface{}, error) {
		ro, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.roster = ro
		r.mu.Unlock()
		return ro, nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "resolving directory for %v", r.domain)
	}
	return v.(*roster), nil
}

// fetch pages through the remote listing to exhaustion, accumulating
// into a local roster that is published only on full success.
func (r *Resolver) fetch(ctx context.Context) (*roster, error) {
	ro := &roster{byID: make(map[string]*User)}

	pageToken := ""
	for {
		raws, next, err := r.src.ListUsers(ctx, r.domain, pageToken)
		if err != nil {
			return nil, err
		}
		for _, raw := range raws {
			u := &User{ID: raw.ID, Primary: raw.PrimaryEmail}
			seen := make(map[string]bool)
			for _, addr := range raw.Emails {
				// The primary address is repeated in
				// the full listing and is not an
				// alias.
				if addr == raw.PrimaryEmail || seen[addr] {
					continue
				}
				seen[addr] = true
				u.Aliases = append(u.Aliases, addr)
			}
			ro.users = append(ro.users, u)
			ro.byID[u.ID] = u
		}
		if next == "" {
			return ro, nil
		}
		pageToken = next
	}
}

// EmailsByUserID returns the user's addresses under the given mode:
// the primary address alone, the aliases alone, or the primary
// followed by the aliases.  An unknown user yields an empty sequence.
func (r *Resolver) EmailsByUserID(ctx context.Context, userID string, mode Mode) ([]string, error) {
	if !mode.valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}
	ro, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := ro.byID[userID]
	if !ok {
		return nil, nil
	}
	switch mode {
	case PrimaryOnly:
		return []string{u.Primary}, nil
	case AliasesOnly:
		return append([]string(nil), u.Aliases...), nil
	default: // PrimaryPlusAliases, validated above
		out := make([]string, 0, 1+len(u.Aliases))
		out = append(out, u.Primary)
		return append(out, u.Aliases...), nil
	}
}

// PrimaryEmailByUserID returns the user's primary address, or the
// empty string for an unknown user.
func (r *Resolver) PrimaryEmailByUserID(ctx context.Context, userID string) (string, error) {
	ro, err := r.resolve(ctx)
	if err != nil {
		return "", err
	}
	u, ok := ro.byID[userID]
	if !ok {
		return "", nil
	}
	return u.Primary, nil
}

// Emails returns every known user's addresses under the given mode,
// concatenated in roster order.
func (r *Resolver) Emails(ctx context.Context, mode Mode) ([]string, error) {
	if !mode.valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}
	ro, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, u := range ro.users {
		emails, err := r.EmailsByUserID(ctx, u.ID, mode)
		if err != nil {
			return nil, err
		}
		out = append(out, emails...)
	}
	return out, nil
}

// UserIDByEmail reverse-resolves an address to a user identifier,
// restricted to the address category named by mode.  No match yields
// the empty string.
func (r *Resolver) UserIDByEmail(ctx context.Context, email string, mode Mode) (string, error) {
	if !mode.valid() {
		return "", errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}
	ro, err := r.resolve(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range ro.users {
		if mode != AliasesOnly && u.Primary == email {
			return u.ID, nil
		}
		if mode != PrimaryOnly {
			for _, alias := range u.Aliases {
				if alias == email {
					return u.ID, nil
				}
			}
		}
	}
	return "", nil
}

// UserIDs returns every known user identifier in roster order.
func (r *Resolver) UserIDs(ctx context.Context) ([]string, error) {
	ro, err := r.resolve(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(ro.users))
	for _, u := range ro.users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// InboxesByUserID maps each known user identifier to its addresses
// under the given mode, joined with sep.
func (r *Resolver) InboxesByUserID(ctx context.Context, sep string, mode Mode) (map[string]string, error) {
	if !mode.valid() {
		return nil, errors.Wrapf(ErrInvalidMode, "mode %d", mode)
	}
	ids, err := r.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		emails, err := r.EmailsByUserID(ctx, id, mode)
		if err != nil {
			return nil, err
		}
		out[id] = strings.Join(emails, sep)
	}
	return out, nil
}

// UserIDByInboxes is the inverse of InboxesByUserID.  Two users
// producing the same joined string collapse to the last one iterated.
func (r *Resolver) UserIDByInboxes(ctx context.Context, sep string, mode Mode) (map[string]string, error) {
	ids, err := r.UserIDs(ctx)
	if err != nil {
		return nil, err
	}
	byID, err := r.InboxesByUserID(ctx, sep, mode)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(byID))
	for _, id := range ids {
		out[byID[id]] = id
	}
	return out, nil
}
