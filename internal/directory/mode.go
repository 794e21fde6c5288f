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

package directory

import "github.com/pkg/errors"

// Mode selects which email address category a resolution considers.
type Mode int

const (
	// PrimaryOnly resolves only the primary address.
	PrimaryOnly Mode = iota

	// AliasesOnly resolves only the alias addresses.
	AliasesOnly

	// PrimaryPlusAliases resolves the primary address followed by
	// the aliases.
	PrimaryPlusAliases
)

// ErrInvalidMode is returned when a resolution mode is not one of the
// declared constants.
var ErrInvalidMode = errors.New("invalid resolution mode")

func (m Mode) valid() bool {
	switch m {
	case PrimaryOnly, AliasesOnly, PrimaryPlusAliases:
		return true
	}
	return false
}

func (m Mode) String() string {
	switch m {
	case PrimaryOnly:
		return "primary-only"
	case AliasesOnly:
		return "aliases-only"
	case PrimaryPlusAliases:
		return "primary-plus-aliases"
	}
	return "invalid"
}
