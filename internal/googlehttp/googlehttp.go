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

// Package googlehttp builds OAuth 2.0 authenticated HTTP clients for
// the Google APIs from environment credentials.
//
// Required environment variables:
//
//	GMIRROR_OAUTH_CLIENT_ID
//	GMIRROR_OAUTH_CLIENT_SECRET
//	GMIRROR_OAUTH_REFRESH_TOKEN
//
// The refresh token must have been granted the scopes the client is
// constructed with.  Tokens are refreshed transparently via
// oauth2.ReuseTokenSource.
package googlehttp

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// New returns an HTTP client authenticated for the given scopes.
func New(ctx context.Context, scopes ...string) (*http.Client, error) {
	clientID := os.Getenv("GMIRROR_OAUTH_CLIENT_ID")
	clientSecret := os.Getenv("GMIRROR_OAUTH_CLIENT_SECRET")
	refreshToken := os.Getenv("GMIRROR_OAUTH_REFRESH_TOKEN")
	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, errors.New("GMIRROR_OAUTH_CLIENT_ID, GMIRROR_OAUTH_CLIENT_SECRET and GMIRROR_OAUTH_REFRESH_TOKEN must be set")
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       scopes,
	}
	token := &oauth2.Token{RefreshToken: refreshToken}
	return config.Client(ctx, token), nil
}
