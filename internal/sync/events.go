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

import (
	"context"

	"github.com/matta/gmirror/internal/message"
)

// multiEvents fans every notification out to several sinks in order.
type multiEvents []Events

// MultiEvents combines sinks into one.  Notifications are delivered
// in argument order; the first error stops delivery.
func MultiEvents(sinks ...Events) Events {
	return multiEvents(sinks)
}

func (m multiEvents) SyncFinished(ctx context.Context, userID string, msgs []*message.Message, labels []*message.Label) error {
	for _, s := range m {
		if err := s.SyncFinished(ctx, userID, msgs, labels); err != nil {
			return err
		}
	}
	return nil
}

func (m multiEvents) HistoryAdvanced(ctx context.Context, hist *message.History) error {
	for _, s := range m {
		if err := s.HistoryAdvanced(ctx, hist); err != nil {
			return err
		}
	}
	return nil
}
