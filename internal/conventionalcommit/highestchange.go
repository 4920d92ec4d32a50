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

package conventionalcommit

import (
	"regexp"

	"github.com/releasaurus/releasaurus/internal/semver"
	"github.com/releasaurus/releasaurus/internal/types"
)

// HighestChange implements spec.md §4.3's evidence gathering for the
// version strategy engine: the strongest change level any retained commit
// warrants. customMajor/customMinor, when non-nil, add alternative match
// patterns against a commit's raw message alongside the conventional
// type/breaking classification already recorded on the commit.
func HighestChange(commits []types.Commit, customMajor, customMinor *regexp.Regexp) semver.ChangeLevel {
	highest := semver.ChangeNone
	for _, c := range commits {
		level := levelFor(c, customMajor, customMinor)
		if level > highest {
			highest = level
		}
	}
	return highest
}

func levelFor(c types.Commit, customMajor, customMinor *regexp.Regexp) semver.ChangeLevel {
	switch {
	case c.Breaking, customMajor != nil && customMajor.MatchString(c.RawMessage):
		return semver.ChangeMajor
	case c.Group == types.GroupFeat, customMinor != nil && customMinor.MatchString(c.RawMessage):
		return semver.ChangeMinor
	case c.Group == types.GroupFix:
		return semver.ChangePatch
	default:
		return semver.ChangeNone
	}
}
