// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package forge

import (
	"github.com/releasaurus/releasaurus/internal/semver"
	"github.com/releasaurus/releasaurus/internal/types"
)

// parseSemverLoose parses the portion of a tag name following its prefix
// and converts it to the shared types.Semver shape. The remainder must be
// a bare semantic version: a leading "v" left after the prefix is
// rejected like any other text semver.Parse does not accept.
func parseSemverLoose(s string) (types.Semver, error) {
	v, err := semver.Parse(s)
	if err != nil {
		return types.Semver{}, err
	}
	return types.Semver{
		Major:    v.Major,
		Minor:    v.Minor,
		Patch:    v.Patch,
		Pre:      v.Prerelease,
		PreNum:   v.PrereleaseNumber,
		PreDelim: v.PrereleaseSeparator,
	}, nil
}
