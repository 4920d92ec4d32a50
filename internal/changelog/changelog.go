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

// Package changelog assembles a package's next Release from filtered
// commits and renders its notes through an external mustache template.
package changelog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"
	"github.com/releasaurus/releasaurus/internal/semver"
	"github.com/releasaurus/releasaurus/internal/types"
)

// defaultTemplate mirrors the default rendering spec.md §4.4 step 6
// describes: a section per non-empty group in enum order, one line per
// commit (scope, upper-first title, short-SHA link), with breaking commits
// additionally quoting their body and breaking description.
const defaultTemplate = `{{#Sections}}
### {{{Heading}}}

{{#Commits}}
* {{#Scope}}*{{{Scope}}}:* {{/Scope}}{{{Title}}} ([{{{ShortID}}}]({{{Link}}})){{#Breaking}}

  > {{#Body}}{{{Body}}}
  >
  {{/Body}}> {{{BreakingDescription}}}{{/Breaking}}
{{/Commits}}

{{/Sections}}`

// renderCommit is the mustache view for a single commit line.
type renderCommit struct {
	Scope               string
	Title               string
	ShortID             string
	Link                string
	Breaking            bool
	Body                string
	BreakingDescription string
}

type renderSection struct {
	Heading string
	Commits []renderCommit
}

type renderView struct {
	Sections []renderSection
}

// Analyze implements spec.md §4.4's algorithm: classify and accumulate
// commits (already filtered and in forge order, newest first), compute the
// next version and notes, and assemble the Release. Returns (nil, nil) when
// there is nothing releasable.
func Analyze(pkg *types.Package, currentTag *types.Tag, commits []types.Commit, commitLinkBase, releaseLinkBase, tagPrefix string, strategy semver.Strategy, highestChange semver.ChangeLevel) (*types.Release, error) {
	return AnalyzeWithTemplate(pkg, currentTag, commits, commitLinkBase, releaseLinkBase, tagPrefix, strategy, highestChange, defaultTemplate)
}

// AnalyzeWithTemplate is Analyze against a caller-supplied mustache
// template for note rendering, for a package's [changelog].body override.
func AnalyzeWithTemplate(pkg *types.Package, currentTag *types.Tag, commits []types.Commit, commitLinkBase, releaseLinkBase, tagPrefix string, strategy semver.Strategy, highestChange semver.ChangeLevel, template string) (*types.Release, error) {
	if len(commits) == 0 {
		return nil, nil
	}

	release := &types.Release{}
	// Commits arrive newest-first from the forge; iterate oldest-first so
	// release.SHA/Timestamp end up reflecting the newest commit seen.
	for i := len(commits) - 1; i >= 0; i-- {
		c := commits[i]
		if c.Link == "" && commitLinkBase != "" {
			c.Link = fmt.Sprintf("%s/%s", strings.TrimRight(commitLinkBase, "/"), c.ID)
		}
		release.Commits = append(release.Commits, c)
		release.SHA = c.ID
		release.Timestamp = c.Timestamp
	}

	var current *semver.Version
	if currentTag != nil {
		v, err := semver.Parse(fmt.Sprintf("%d.%d.%d%s", currentTag.Semver.Major, currentTag.Semver.Minor, currentTag.Semver.Patch, prereleaseSuffix(currentTag.Semver)))
		if err != nil {
			return nil, fmt.Errorf("parsing current tag version: %w", err)
		}
		current = &v
	}

	next, err := strategy.ComputeNext(current, highestChange, semver.BumpFlags{
		BreakingAlwaysIncrementMajor: pkg.BreakingAlwaysMajor,
		FeaturesAlwaysIncrementMinor: pkg.FeaturesAlwaysMinor,
	})
	if err != nil {
		return nil, fmt.Errorf("computing next version: %w", err)
	}

	tagName := tagPrefix + next.String()
	release.Tag = &types.Tag{
		SHA:    release.SHA,
		Name:   tagName,
		Semver: toTypesSemver(next),
	}
	release.Link = fmt.Sprintf("%s/%s", strings.TrimRight(releaseLinkBase, "/"), tagName)

	notes, err := RenderWithTemplate(release.Commits, template)
	if err != nil {
		return nil, fmt.Errorf("rendering notes: %w", err)
	}
	release.Notes = notes

	return release, nil
}

func prereleaseSuffix(s types.Semver) string {
	if s.Pre == "" {
		return ""
	}
	if s.PreNum != "" {
		return "-" + s.Pre + s.PreDelim + s.PreNum
	}
	return "-" + s.Pre
}

func toTypesSemver(v semver.Version) types.Semver {
	return types.Semver{
		Major:    v.Major,
		Minor:    v.Minor,
		Patch:    v.Patch,
		Pre:      v.Prerelease,
		PreNum:   v.PrereleaseNumber,
		PreDelim: v.PrereleaseSeparator,
	}
}

// Render groups commits by Group (excluding merge commits), orders the
// groups by the canonical enum order, and renders through the default
// mustache template, then normalizes the output.
func Render(commits []types.Commit) (string, error) {
	return RenderWithTemplate(commits, defaultTemplate)
}

// RenderWithTemplate is Render against a caller-supplied mustache
// template, for a package's [changelog].body override.
func RenderWithTemplate(commits []types.Commit, template string) (string, error) {
	byGroup := map[types.Group][]renderCommit{}
	for _, c := range commits {
		if c.MergeCommit {
			continue
		}
		byGroup[c.Group] = append(byGroup[c.Group], renderCommit{
			Scope:               c.Scope,
			Title:               c.Title,
			ShortID:             c.ShortID,
			Link:                c.Link,
			Breaking:            c.Breaking,
			Body:                c.Body,
			BreakingDescription: c.BreakingDescription,
		})
	}

	var sections []renderSection
	for _, g := range types.GroupOrder() {
		cs, ok := byGroup[g]
		if !ok || len(cs) == 0 {
			continue
		}
		sections = append(sections, renderSection{Heading: g.Heading(), Commits: cs})
	}

	rendered, err := mustache.Render(template, renderView{Sections: sections})
	if err != nil {
		return "", fmt.Errorf("executing changelog template: %w", err)
	}
	return Normalize(rendered), nil
}

// runsOfNewlines collapses 3+ consecutive newlines (with optional
// intervening whitespace) down to exactly 2, per spec.md §4.4 step 7 and
// the strip_extra_lines idempotence property from §8.
var runsOfNewlines = regexp.MustCompile(`\n[ \t]*\n[ \t]*(\n[ \t]*)+`)

// Normalize applies strip_extra_lines: collapse 3+ newline runs to 2 and
// trim. Idempotent by construction — a second pass finds no run of 3+.
func Normalize(s string) string {
	s = runsOfNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// NormalizePath implements the normalize_path property from spec.md §8:
// forward slashes only, no "./" subsequence, idempotent.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "./") {
		p = strings.ReplaceAll(p, "./", "")
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
