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

// Package natssink publishes the engine's completion notifications to
// NATS JetStream for downstream consumers.
package natssink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/matta/gmirror/internal/message"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
)

const (
	streamName = "GMIRROR"

	SubjectSyncFinished    = "gmirror.sync.finished"
	SubjectHistoryAdvanced = "gmirror.history.advanced"
)

// Sink publishes sync notifications as JSON messages.
type Sink struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// New connects to the NATS server at url and ensures the stream
// backing the notification subjects exists.
func New(url string) (*Sink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to NATS")
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, errors.Wrap(err, "getting JetStream context")
	}

	s := &Sink{nc: nc, js: js}
	if err := s.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureStream() error {
	if info, err := s.js.StreamInfo(streamName); err == nil && info != nil {
		return nil
	}
	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"gmirror.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     30 * 24 * time.Hour,
	})
	if err == nats.ErrStreamNameAlreadyInUse {
		return nil
	}
	return errors.Wrap(err, "creating stream")
}

// Close closes the NATS connection.
func (s *Sink) Close() {
	if s.nc != nil {
		s.nc.Close()
	}
}

type syncFinishedPayload struct {
	UserID   string             `json:"user_id"`
	Messages []*message.Message `json:"messages"`
	Labels   []*message.Label   `json:"labels"`
}

type historyAdvancedPayload struct {
	UserID    string `json:"user_id"`
	HistoryID uint64 `json:"history_id"`
}

// SyncFinished publishes the run's message and label collections.
func (s *Sink) SyncFinished(_ context.Context, userID string, msgs []*message.Message, labels []*message.Label) error {
	payload, err := json.Marshal(syncFinishedPayload{
		UserID:   userID,
		Messages: msgs,
		Labels:   labels,
	})
	if err != nil {
		return errors.Wrap(err, "encoding sync finished payload")
	}
	msgID := fmt.Sprintf("sync-finished-%s-%d", userID, len(msgs))
	if _, err := s.js.Publish(SubjectSyncFinished, payload, nats.MsgId(msgID)); err != nil {
		return errors.Wrap(err, "publishing sync finished")
	}
	return nil
}

// HistoryAdvanced publishes the user's fresh history watermark.
func (s *Sink) HistoryAdvanced(_ context.Context, hist *message.History) error {
	payload, err := json.Marshal(historyAdvancedPayload{
		UserID:    hist.UserID,
		HistoryID: hist.HistoryID,
	})
	if err != nil {
		return errors.Wrap(err, "encoding history payload")
	}
	msgID := fmt.Sprintf("history-%s-%d", hist.UserID, hist.HistoryID)
	if _, err := s.js.Publish(SubjectHistoryAdvanced, payload, nats.MsgId(msgID)); err != nil {
		return errors.Wrap(err, "publishing history watermark")
	}
	return nil
}
