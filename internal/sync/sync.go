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

// Package sync mirrors remote mailbox messages and labels into the
// local domain model, one run per user, and publishes the results.
package sync

import (
	"context"
	"log"

	"github.com/matta/gmirror/internal/message"

	"github.com/pkg/errors"
)

// Engine drives synchronization runs.  All caches are scoped to the
// engine instance and keyed by user, so successive runs for the same
// user accumulate into the same collections.
//
// The engine is not safe for concurrent runs against the same user;
// callers must serialize per (engine, user) pair.
type Engine struct {
	src    Source
	tr     Transformer
	events Events

	users map[string]*userState
}

// userState holds the per-user caches of one engine instance.
type userState struct {
	// Raw label identifier to display name, mirroring the remote
	// label listing.  Refreshed in full on every resolution call.
	labelNames map[string]string

	// Raw message identifiers already handled during history
	// feeds.  Guards against the change feed referencing the same
	// message from overlapping deltas.
	seen map[string]bool

	labels   *message.LabelSet
	messages *message.List
}

// New returns an engine reading from src, transforming with tr and
// publishing to events.
func New(src Source, tr Transformer, events Events) *Engine {
	return &Engine{
		src:    src,
		tr:     tr,
		events: events,
		users:  make(map[string]*userState),
	}
}

func (e *Engine) state(userID string) *userState {
	st, ok := e.users[userID]
	if !ok {
		st = &userState{
			labelNames: make(map[string]string),
			seen:       make(map[string]bool),
			labels:     message.NewLabelSet(),
			messages:   message.NewList(),
		}
		e.users[userID] = st
	}
	return st
}

// SyncFromHistory processes an ordered change feed for one user.  A
// message referenced by more than one delta is fetched and processed
// only once.  Messages the remote reports as missing are skipped.
// After the last delta the two completion notifications are
// published.
func (e *Engine) SyncFromHistory(ctx context.Context, userID string, deltas []message.HistoryDelta) error {
	st := e.state(userID)
	for _, delta := range deltas {
		for _, id := range delta.MessageIDs {
			if st.seen[id] {
				continue
			}
			st.seen[id] = true
			if err := e.fetch(ctx, st, userID, id); err != nil {
				return err
			}
		}
	}
	return e.finish(ctx, st, userID)
}

// SyncFromIDs processes an explicit, caller-deduplicated list of raw
// message identifiers for one user.  Messages the remote reports as
// missing are skipped.  After the last identifier the two completion
// notifications are published.
func (e *Engine) SyncFromIDs(ctx context.Context, userID string, ids []string) error {
	st := e.state(userID)
	for _, id := range ids {
		if err := e.fetch(ctx, st, userID, id); err != nil {
			return err
		}
	}
	return e.finish(ctx, st, userID)
}

func (e *Engine) fetch(ctx context.Context, st *userState, userID, id string) error {
	raw, err := e.src.GetMessage(ctx, userID, id)
	if errors.Cause(err) == message.ErrNotFound {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "fetching message %v for %v", id, userID)
	}
	return e.process(ctx, st, userID, raw)
}

func (e *Engine) process(ctx context.Context, st *userState, userID string, raw *message.Raw) error {
	names, err := e.resolveLabelNames(ctx, st, userID, raw.LabelIDs)
	if err != nil {
		return err
	}

	labels := make([]*message.Label, 0, len(names))
	for _, name := range names {
		if !st.labels.Has(name) {
			st.labels.Add(e.tr.Label(name, userID))
		}
		labels = append(labels, st.labels.Get(name))
	}

	st.messages.Add(e.tr.Message(raw, labels, userID))
	return nil
}

// resolveLabelNames maps raw label identifiers to display names.  The
// label listing cache is refreshed in full on every call so that
// labels created remotely mid-run are visible.  An identifier absent
// from the fresh listing belongs to a label deleted since the change
// event was recorded; it is skipped with a warning.
func (e *Engine) resolveLabelNames(ctx context.Context, st *userState, userID string, ids []string) ([]string, error) {
	listing, err := e.src.ListLabels(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "listing labels for %v", userID)
	}
	for _, l := range listing {
		st.labelNames[l.ID] = l.Name
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := st.labelNames[id]
		if !ok {
			log.Printf("label id %q for %v not in current listing; skipping", id, userID)
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// finish publishes the completion notifications: first the full
// per-user message and label collections, then a fresh history
// watermark over those messages.
func (e *Engine) finish(ctx context.Context, st *userState, userID string) error {
	if err := e.events.SyncFinished(ctx, userID, st.messages.All(), st.labels.All()); err != nil {
		return errors.Wrapf(err, "publishing sync finished for %v", userID)
	}
	hist := &message.History{UserID: userID, HistoryID: st.messages.MaxHistoryID()}
	if err := e.events.HistoryAdvanced(ctx, hist); err != nil {
		return errors.Wrapf(err, "publishing history watermark for %v", userID)
	}
	return nil
}
