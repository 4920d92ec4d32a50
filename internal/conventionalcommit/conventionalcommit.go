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

// Package conventionalcommit parses Conventional Commits messages and
// classifies them into the fixed, ordered set of change groups the
// changelog and version-strategy pipelines key off of.
package conventionalcommit

import (
	"regexp"
	"strings"

	"github.com/releasaurus/releasaurus/internal/types"
)

// headerRegex matches the first line of a conventional commit:
// "type(scope)?!: description".
var headerRegex = regexp.MustCompile(`^(?P<type>\w+)(?:\((?P<scope>[^)]*)\))?(?P<breaking>!)?:\s*(?P<description>.*)$`)

// breakingFooterRegex matches a BREAKING CHANGE / BREAKING-CHANGE footer,
// case-insensitive per spec.md §4.2.
var breakingFooterRegex = regexp.MustCompile(`(?i)^BREAKING[- ]CHANGE:\s*(.*)$`)

// typeGroups maps a conventional commit type prefix to its change group.
// Order mirrors spec.md §4.2's fixed ordered list; all match cases are
// anchored and case-sensitive.
var typeGroups = map[string]types.Group{
	"feat":     types.GroupFeat,
	"fix":      types.GroupFix,
	"chore":    types.GroupChore,
	"ci":       types.GroupCi,
	"doc":      types.GroupDoc,
	"docs":     types.GroupDoc,
	"perf":     types.GroupPerf,
	"refactor": types.GroupRefactor,
	"revert":   types.GroupRevert,
	"style":    types.GroupStyle,
	"test":     types.GroupTest,
}

// Policy carries the skip/reword configuration applied while classifying
// commits, per spec.md §4.2 steps 5-7.
type Policy struct {
	SkipCI               bool
	SkipChore            bool
	SkipMiscellaneous    bool
	SkipMergeCommits     bool
	SkipReleaseCommits   *regexp.Regexp
	SkipSHAs             []string
	Reword               map[string]string // sha-prefix -> replacement message
}

// matchesSHA reports whether any configured prefix (length >= 7, validated
// at config-resolve time) prefix-matches sha.
func matchesSHA(sha string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(sha, p) {
			return true
		}
	}
	return false
}

func rewordFor(sha string, reword map[string]string) (string, bool) {
	for prefix, msg := range reword {
		if strings.HasPrefix(sha, prefix) {
			return msg, true
		}
	}
	return "", false
}

// Classify converts a raw forge commit into a classified Commit, applying
// skip and reword policies. A nil return (with nil error) means the commit
// was filtered out and should not be included in the release.
func Classify(fc types.ForgeCommit, policy Policy) (*types.Commit, error) {
	if matchesSHA(fc.SHA, policy.SkipSHAs) {
		return nil, nil
	}

	message := fc.Message
	if replacement, ok := rewordFor(fc.SHA, policy.Reword); ok {
		message = replacement
	}

	if policy.SkipMergeCommits && fc.ParentCount > 1 {
		return nil, nil
	}
	if policy.SkipReleaseCommits != nil && policy.SkipReleaseCommits.MatchString(message) {
		return nil, nil
	}

	rawTitle, body := splitHeaderBody(message)
	group, scope, title, breaking, breakingDesc := parseHeader(rawTitle, body)

	if policy.SkipCI && group == types.GroupCi {
		return nil, nil
	}
	if policy.SkipChore && group == types.GroupChore {
		return nil, nil
	}
	if policy.SkipMiscellaneous && group == types.GroupMiscellaneous {
		return nil, nil
	}

	short := fc.SHA
	if len(short) > 7 {
		short = short[:7]
	}

	return &types.Commit{
		ID:                  fc.SHA,
		ShortID:             short,
		Group:               group,
		Scope:               scope,
		Title:               title,
		Body:                body,
		Breaking:            breaking,
		BreakingDescription: breakingDesc,
		MergeCommit:         fc.ParentCount > 1,
		Timestamp:           fc.Timestamp,
		AuthorName:          fc.Author,
		AuthorEmail:         fc.AuthorEmail,
		RawTitle:            rawTitle,
		RawMessage:          message,
	}, nil
}

// splitHeaderBody splits a commit message into its first line and the
// remainder (trimmed of leading blank lines).
func splitHeaderBody(message string) (header, body string) {
	lines := strings.SplitN(message, "\n", 2)
	header = lines[0]
	if len(lines) == 2 {
		body = strings.TrimLeft(lines[1], "\n")
	}
	return header, body
}

// parseHeader applies spec.md §4.2 steps 1-4: parse the header, determine
// breaking status (explicit "!" or a BREAKING CHANGE footer), and classify
// by type prefix with breaking taking strict precedence.
func parseHeader(header, body string) (group types.Group, scope, title string, breaking bool, breakingDesc string) {
	m := headerRegex.FindStringSubmatch(header)
	if m == nil {
		if detectBreakingFooter(body, &breakingDesc) {
			return types.GroupBreaking, "", header, true, breakingDesc
		}
		return types.GroupMiscellaneous, "", header, false, ""
	}
	names := headerRegex.SubexpNames()
	groups := map[string]string{}
	for i, name := range names {
		if name != "" && i < len(m) {
			groups[name] = m[i]
		}
	}

	commitType := groups["type"]
	scope = groups["scope"]
	title = upperFirst(strings.TrimSpace(groups["description"]))
	breaking = groups["breaking"] == "!"

	if detectBreakingFooter(body, &breakingDesc) {
		breaking = true
	}

	if breaking {
		return types.GroupBreaking, scope, title, true, breakingDesc
	}
	if g, ok := typeGroups[commitType]; ok {
		return g, scope, title, false, ""
	}
	return types.GroupMiscellaneous, scope, title, false, ""
}

// detectBreakingFooter scans body lines for a BREAKING CHANGE footer,
// capturing the description that follows the colon. Supports multi-line
// continuation: subsequent non-footer-shaped lines are appended.
func detectBreakingFooter(body string, desc *string) bool {
	if body == "" {
		return false
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if m := breakingFooterRegex.FindStringSubmatch(line); m != nil {
			parts := []string{strings.TrimSpace(m[1])}
			for j := i + 1; j < len(lines); j++ {
				trimmed := strings.TrimSpace(lines[j])
				if trimmed == "" || looksLikeFooter(trimmed) {
					break
				}
				parts = append(parts, trimmed)
			}
			*desc = strings.TrimSpace(strings.Join(parts, " "))
			return true
		}
	}
	return false
}

var footerKeyRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*(: | #)`)

func looksLikeFooter(line string) bool {
	return footerKeyRegex.MatchString(line)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
