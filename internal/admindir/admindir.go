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

// Package admindir lists organizational users from the Google
// Workspace Admin SDK directory, page by page.
package admindir

import (
	"context"
	"net/http"

	"github.com/matta/gmirror/internal/directory"

	"github.com/pkg/errors"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

const ReadonlyScope = admin.AdminDirectoryUserReadonlyScope

// Service implements directory.Source against the Admin SDK.
type Service struct {
	service *admin.Service
}

// New returns a service using the given authenticated HTTP client.
func New(ctx context.Context, client *http.Client) (*Service, error) {
	s, err := admin.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "creating admin directory service")
	}
	return &Service{service: s}, nil
}

// ListUsers returns one page of the domain's user listing and the
// continuation token for the next page, empty when exhausted.
func (s *Service) ListUsers(ctx context.Context, domain, pageToken string) ([]directory.RawUser, string, error) {
	call := s.service.Users.List().Domain(domain).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", errors.Wrapf(err, "listing directory users for %v", domain)
	}

	users := make([]directory.RawUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, directory.RawUser{
			ID:           u.Id,
			PrimaryEmail: u.PrimaryEmail,
			Emails:       emailAddresses(u.Emails),
		})
	}
	return users, resp.NextPageToken, nil
}

// emailAddresses extracts the address strings from the Admin SDK's
// untyped Emails field, which carries a JSON list of objects with an
// "address" key.  The primary address is included in this list.
func emailAddresses(v interface{}) []string {
	entries, ok := v.([]interface{})
	if !ok {
		return nil
	}
	addrs := make([]string, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		if addr, ok := obj["address"].(string); ok && addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}
