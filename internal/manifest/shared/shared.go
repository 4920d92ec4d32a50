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

// Package shared holds the regex-replacement helper every per-ecosystem
// manifest updater builds its FileChange on top of, per spec.md §4.5's
// "shared helper" paragraph.
package shared

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ReplaceNamedVersion finds re's first match in content and overwrites the
// span captured by its "version" named group with newVersion. It reports
// false if re has no match (the caller should then emit no FileChange) or
// if newVersion doesn't parse as bare semver — a guard against writing a
// malformed version string into a sibling manifest, since every ecosystem
// updater funnels its edit through this one helper.
// re must declare a "version" named capture group; this is validated once
// at config-resolve time for user-specified manifests and is a
// precondition for the ecosystem-fixed regexes defined in this package's
// siblings.
func ReplaceNamedVersion(content, newVersion string, re *regexp.Regexp) (string, bool) {
	if _, err := semver.StrictNewVersion(newVersion); err != nil {
		return content, false
	}
	loc := re.FindStringSubmatchIndex(content)
	if loc == nil {
		return content, false
	}
	groupIdx := -1
	for i, name := range re.SubexpNames() {
		if name == "version" {
			groupIdx = i
			break
		}
	}
	if groupIdx == -1 || loc[2*groupIdx] == -1 {
		return content, false
	}
	start, end := loc[2*groupIdx], loc[2*groupIdx+1]
	return content[:start] + newVersion + content[end:], true
}

// JoinPath joins non-empty, non-"." path segments with "/", matching the
// normalize_path convention internal/config uses for package paths.
func JoinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" && p != "." {
			nonEmpty = append(nonEmpty, strings.Trim(p, "/"))
		}
	}
	if len(nonEmpty) == 0 {
		return "."
	}
	return strings.Join(nonEmpty, "/")
}

// FirstExisting returns the first path in candidates present in files,
// used by updaters that try several well-known file locations in order
// (Ruby's version.rb search, Go's version.go search).
func FirstExisting(files map[string]string, candidates ...string) (string, bool) {
	for _, c := range candidates {
		if _, ok := files[c]; ok {
			return c, true
		}
	}
	return "", false
}
