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

package changelog

import (
	"fmt"
	"strings"

	"github.com/releasaurus/releasaurus/internal/types"
)

// defaultHeader is emitted when a package has no existing CHANGELOG.md.
const defaultHeader = "# Changelog\n\nAll notable changes to this project are documented in this file.\n"

// WriteRules carries the optional header/footer replacement text a package
// can configure for its CHANGELOG.md, per spec.md §4.4's write mode.
type WriteRules struct {
	Header string // replaces the default header block when non-empty
	Footer string // appended after the last section when non-empty
}

// BuildChangelogFile implements spec.md §4.4's write mode: open the
// package's existing CHANGELOG.md content (empty string if absent), prepend
// the new release section directly after the header, preserve everything
// else, apply the configured header/footer replacement, normalize
// whitespace, and return a Replace FileChange.
func BuildChangelogFile(path, existing string, release *types.Release, rules WriteRules) types.FileChange {
	header := rules.Header
	if header == "" {
		header = defaultHeader
	}

	body := strings.TrimPrefix(existing, header)
	if body == existing && existing != "" {
		// Existing content doesn't start with our header; keep it all as body
		// and let the new header sit on top.
		body = existing
	}

	section := fmt.Sprintf("## [%s](%s) (%s)\n\n%s\n", release.Tag.Name, release.Link, release.Timestamp.Format("2006-01-02"), release.Notes)

	var out strings.Builder
	out.WriteString(header)
	out.WriteString("\n")
	out.WriteString(section)
	if body != "" {
		out.WriteString("\n")
		out.WriteString(body)
	}
	if rules.Footer != "" {
		out.WriteString("\n")
		out.WriteString(rules.Footer)
	}

	return types.FileChange{
		Path:    path,
		Content: Normalize(out.String()) + "\n",
		Kind:    types.FileChangeReplace,
	}
}
