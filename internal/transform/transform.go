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

// Package transform builds domain records from raw mailbox API
// records.  The transformers are pure: one raw record in, one domain
// record out, no I/O.
package transform

import (
	"github.com/matta/gmirror/internal/message"
)

// Transformer converts raw API records into domain records for one
// organizational domain.
type Transformer struct {
	// The organizational domain stamped onto created labels.
	domain string
}

// New returns a transformer for the given organizational domain.
func New(domain string) *Transformer {
	return &Transformer{domain: domain}
}

// Label builds a label from a display name for the given user.
func (t *Transformer) Label(name, userID string) *message.Label {
	return &message.Label{
		UserID: userID,
		Domain: t.domain,
		Name:   name,
	}
}

// Message builds a message from a raw record, its resolved labels and
// the owning user.  The raw record's own label identifiers are
// ignored; the caller has already resolved them.
func (t *Transformer) Message(raw *message.Raw, labels []*message.Label, userID string) *message.Message {
	return &message.Message{
		To:        raw.To,
		From:      raw.From,
		SentAt:    raw.SentAt,
		Subject:   raw.Subject,
		Snippet:   raw.Snippet,
		ID:        raw.ID,
		ThreadID:  raw.ThreadID,
		HistoryID: raw.HistoryID,
		UserID:    userID,
		Labels:    labels,
	}
}
