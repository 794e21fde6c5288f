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

// Package gmail provides access to raw messages and labels stored in
// Google's GMail system.
package gmail

import (
	"context"
	"log"
	"net/http"
	"net/mail"
	"time"

	"github.com/matta/gmirror/internal/message"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
	gmail_api "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	ReadonlyScope = gmail_api.GmailReadonlyScope

	// See https://developers.google.com/gmail/api/v1/reference/quota
	quotaUnitsPerMessagesGet  = 5
	quotaUnitsPerGetProfile   = 2
	quotaUnitsPerHistoryList  = 2
	quotaUnitsPerMessagesList = 1
	quotaUnitsPerLabelsList   = 1

	quotaUnitsPerSecond = 250
	rateLimitPerSecond  = quotaUnitsPerSecond * 0.8
	rateLimitBurst      = quotaUnitsPerSecond
)

// Service reads raw messages, labels and change history from GMail.
type Service struct {
	service *gmail_api.Service
	limiter *rate.Limiter
}

// New returns a service using the given authenticated HTTP client.
func New(ctx context.Context, client *http.Client) (*Service, error) {
	s, err := gmail_api.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "creating gmail service")
	}
	l := rate.NewLimiter(rateLimitPerSecond, rateLimitBurst)
	return &Service{service: s, limiter: l}, nil
}

func isChat(msg *gmail_api.Message) bool {
	for _, label := range msg.LabelIds {
		if label == "CHAT" {
			return true
		}
	}
	return false
}

// GetMessage fetches one message in metadata form.  Messages the API
// reports as missing, and chat transcripts (which cannot be fetched
// consistently), are reported with message.ErrNotFound.
func (s *Service) GetMessage(ctx context.Context, userID, id string) (*message.Raw, error) {
	for {
		if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesGet); err != nil {
			return nil, err
		}
		msg, err := gmail_api.NewUsersMessagesService(s.service).
			Get(userID, id).
			Context(ctx).
			Format("metadata").
			MetadataHeaders("To", "From", "Subject", "Date").
			Do()
		if err == nil {
			if isChat(msg) {
				return nil, message.ErrNotFound
			}
			return rawFromAPI(msg), nil
		}

		switch cause := errors.Cause(err).(type) {
		case *googleapi.Error:
			if cause.Code == http.StatusTooManyRequests {
				continue // retry
			}
			if cause.Code == http.StatusNotFound {
				return nil, message.ErrNotFound
			}
		}
		return nil, errors.Wrapf(err, "getting message %v from gmail", id)
	}
}

// ListLabels returns the user's full current label listing.
func (s *Service) ListLabels(ctx context.Context, userID string) ([]message.RawLabel, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerLabelsList); err != nil {
		return nil, err
	}
	resp, err := gmail_api.NewUsersLabelsService(s.service).List(userID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "listing labels for %v", userID)
	}
	labels := make([]message.RawLabel, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, message.RawLabel{ID: l.Id, Name: l.Name})
	}
	return labels, nil
}

// ListMessageIDs streams every message identifier in the mailbox, for
// catch-up synchronization.
func (s *Service) ListMessageIDs(ctx context.Context, userID string, handler func(id string) error) error {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerMessagesList); err != nil {
		return err
	}
	req := gmail_api.NewUsersMessagesService(s.service).List(userID).Context(ctx)
	total := 0
	err := req.Pages(ctx, func(page *gmail_api.ListMessagesResponse) (err error) {
		total += len(page.Messages)
		log.Printf("listed page of Gmail messages; count %d; total so far %d", len(page.Messages), total)
		for _, msg := range page.Messages {
			if err := handler(msg.Id); err != nil {
				return err
			}
		}
		if page.NextPageToken != "" {
			err = s.limiter.WaitN(ctx, quotaUnitsPerMessagesList)
		}
		return
	})
	log.Printf("done listing Gmail messages; total %d", total)
	if err != nil {
		return errors.Wrap(err, "unable to retrieve all messages")
	}
	return nil
}

// ListHistory returns the change feed after the given history
// identifier, one delta per remote history record, in feed order.
func (s *Service) ListHistory(ctx context.Context, userID string, startHistoryID uint64) ([]message.HistoryDelta, error) {
	wait := func() error {
		return s.limiter.WaitN(ctx, quotaUnitsPerHistoryList)
	}
	if err := wait(); err != nil {
		return nil, err
	}

	req := gmail_api.NewUsersHistoryService(s.service).List(userID).Context(ctx).StartHistoryId(startHistoryID)
	var deltas []message.HistoryDelta
	total := 0
	err := req.Pages(ctx, func(page *gmail_api.ListHistoryResponse) (err error) {
		total += len(page.History)
		log.Printf("listed page of Gmail history; count %d; total so far %d", len(page.History), total)
		for _, h := range page.History {
			delta := message.HistoryDelta{}
			for _, m := range h.Messages {
				delta.MessageIDs = append(delta.MessageIDs, m.Id)
			}
			deltas = append(deltas, delta)
		}
		if page.NextPageToken != "" {
			err = wait()
		}
		return
	})
	if err != nil {
		return nil, errors.Wrapf(err, "listing history for %v from %d", userID, startHistoryID)
	}
	return deltas, nil
}

// Profile holds per-account metadata.
type Profile struct {
	EmailAddress string
	HistoryID    uint64
}

// GetProfile returns the mailbox profile for the user.
func (s *Service) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if err := s.limiter.WaitN(ctx, quotaUnitsPerGetProfile); err != nil {
		return nil, err
	}
	u, err := gmail_api.NewUsersService(s.service).GetProfile(userID).Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "getting profile for %v", userID)
	}
	return &Profile{
		EmailAddress: u.EmailAddress,
		HistoryID:    u.HistoryId,
	}, nil
}

func rawFromAPI(msg *gmail_api.Message) *message.Raw {
	raw := &message.Raw{
		Snippet:   msg.Snippet,
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		HistoryID: msg.HistoryId,
		LabelIDs:  msg.LabelIds,
	}
	if msg.Payload == nil {
		return raw
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "To":
			raw.To = h.Value
		case "From":
			raw.From = h.Value
		case "Subject":
			raw.Subject = h.Value
		case "Date":
			raw.SentAt = parseDate(h.Value, msg.InternalDate)
		}
	}
	if raw.SentAt.IsZero() && msg.InternalDate > 0 {
		raw.SentAt = time.UnixMilli(msg.InternalDate)
	}
	return raw
}

// parseDate parses an RFC 5322 Date header, falling back to the
// server's internal delivery time when the header is malformed.
func parseDate(value string, internalDate int64) time.Time {
	t, err := mail.ParseDate(value)
	if err == nil {
		return t
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate)
	}
	return time.Time{}
}
