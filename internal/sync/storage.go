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

package sync

// This file defines the collaborator boundaries the engine consumes.

import (
	"context"

	"github.com/matta/gmirror/internal/message"
)

// MessageGetter fetches one raw message by identifier from a message
// storage system.  A missing message is reported with
// message.ErrNotFound.
type MessageGetter interface {
	GetMessage(ctx context.Context, userID, id string) (*message.Raw, error)
}

// LabelLister lists the full current label listing of a user from a
// message storage system.
type LabelLister interface {
	ListLabels(ctx context.Context, userID string) ([]message.RawLabel, error)
}

// Source provides all raw mailbox data the engine needs.
type Source interface {
	MessageGetter
	LabelLister
}

// Transformer converts raw API records into domain records.
type Transformer interface {
	Label(name, userID string) *message.Label
	Message(raw *message.Raw, labels []*message.Label, userID string) *message.Message
}

// Events receives the two notifications published at the end of every
// synchronization run, in this order: SyncFinished first, then
// HistoryAdvanced.  An error from either aborts the run.
type Events interface {
	SyncFinished(ctx context.Context, userID string, msgs []*message.Message, labels []*message.Label) error
	HistoryAdvanced(ctx context.Context, hist *message.History) error
}
