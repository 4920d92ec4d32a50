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

// Package release drives the two-phase release workflow spec.md §4.9
// describes: opening/refreshing a release pull request (phase one) and,
// once a user merges it, tagging and publishing forge releases (phase
// two). Grounded on internal/librarian/tag_and_release.go (phase two:
// search by label, parse body, tag, release, relabel) and
// internal/librarian/release_init.go (phase-one PR creation/update shape).
package release

import (
	"context"
	"fmt"
	"regexp"

	"github.com/releasaurus/releasaurus/internal/changelog"
	"github.com/releasaurus/releasaurus/internal/commitfetch"
	"github.com/releasaurus/releasaurus/internal/config"
	"github.com/releasaurus/releasaurus/internal/conventionalcommit"
	"github.com/releasaurus/releasaurus/internal/forge"
	"github.com/releasaurus/releasaurus/internal/semver"
	"github.com/releasaurus/releasaurus/internal/types"
)

// branchPrefix names every release branch this system creates, per
// spec.md §6.
const branchPrefix = "releasaurus-release-"

// Orchestrator drives the release-pr and release commands against a
// single Forge.
type Orchestrator struct {
	Forge forge.Forge
}

// New constructs an Orchestrator against f.
func New(f forge.Forge) *Orchestrator {
	return &Orchestrator{Forge: f}
}

// projectedRelease pairs a resolved package with its computed next
// release, once commits since its last tag have been classified and
// found non-empty.
type projectedRelease struct {
	Package *types.Package
	Release *types.Release
}

// releaseBranchName implements spec.md §6's branch naming: one shared
// branch per base branch, or one per package when separate_pull_requests
// is set.
func releaseBranchName(baseBranch string, pkg *types.Package, separate bool) string {
	if separate {
		return fmt.Sprintf("%s%s-%s", branchPrefix, baseBranch, pkg.Name)
	}
	return branchPrefix + baseBranch
}

// groupByBranch partitions projected releases by the release branch they
// belong to, preserving package order within each group.
func groupByBranch(projected []projectedRelease, baseBranch string, separate bool) ([]string, map[string][]projectedRelease) {
	groups := map[string][]projectedRelease{}
	var order []string
	for _, p := range projected {
		branch := releaseBranchName(baseBranch, p.Package, separate)
		if _, ok := groups[branch]; !ok {
			order = append(order, branch)
		}
		groups[branch] = append(groups[branch], p)
	}
	return order, groups
}

// groupPackagesByBranch partitions packages by the release branch they
// belong to, without requiring a computed projectedRelease — used by
// phase two, which must locate a branch's merged PR before any notes
// exist to group by.
func groupPackagesByBranch(packages []*types.Package, baseBranch string, separate bool) ([]string, map[string][]*types.Package) {
	groups := map[string][]*types.Package{}
	var order []string
	for _, pkg := range packages {
		branch := releaseBranchName(baseBranch, pkg, separate)
		if _, ok := groups[branch]; !ok {
			order = append(order, branch)
		}
		groups[branch] = append(groups[branch], pkg)
	}
	return order, groups
}

// computeProjected implements spec.md §4.9 phase-one steps 2-3: fetch
// commits (optimized across packages), classify, and compute each
// package's next version and notes. Packages with nothing releasable are
// silently omitted.
func (o *Orchestrator) computeProjected(ctx context.Context, resolved *config.Resolved, packages []*types.Package) ([]projectedRelease, error) {
	fetched, err := commitfetch.Fetch(ctx, o.Forge, resolved.BaseBranch, packages, resolved.SearchDepth)
	if err != nil {
		return nil, fmt.Errorf("fetching commits: %w", err)
	}

	commitBase, releaseBase, err := o.Forge.WebURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving web url: %w", err)
	}

	policy := conventionalcommit.Policy{
		SkipCI:             resolved.Changelog.SkipCI,
		SkipChore:          resolved.Changelog.SkipChore,
		SkipMiscellaneous:  resolved.Changelog.SkipMiscellaneous,
		SkipMergeCommits:   resolved.Changelog.SkipMergeCommits,
		SkipReleaseCommits: resolved.Changelog.SkipReleaseCommits,
		SkipSHAs:           resolved.Changelog.SkipSHAs,
		Reword:             resolved.Changelog.Reword,
	}

	var out []projectedRelease
	for _, pkg := range packages {
		result := fetched[pkg.Name]
		if result == nil {
			continue
		}

		var classified []types.Commit
		for _, fc := range result.Commits {
			c, err := conventionalcommit.Classify(fc, policy)
			if err != nil {
				return nil, fmt.Errorf("classifying commit %s: %w", fc.SHA, err)
			}
			if c != nil {
				classified = append(classified, *c)
			}
		}
		if len(classified) == 0 {
			continue
		}

		var customMajor, customMinor *regexp.Regexp
		if pkg.CustomMajorRegex != "" {
			customMajor = regexp.MustCompile(pkg.CustomMajorRegex)
		}
		if pkg.CustomMinorRegex != "" {
			customMinor = regexp.MustCompile(pkg.CustomMinorRegex)
		}
		highest := conventionalcommit.HighestChange(classified, customMajor, customMinor)
		strategy := semver.NewStrategy(toSemverPrerelease(pkg.Prerelease))

		var rel *types.Release
		if resolved.Changelog.Body != "" {
			rel, err = changelog.AnalyzeWithTemplate(pkg, result.Tag, classified, commitBase, releaseBase, pkg.TagPrefix, strategy, highest, resolved.Changelog.Body)
		} else {
			rel, err = changelog.Analyze(pkg, result.Tag, classified, commitBase, releaseBase, pkg.TagPrefix, strategy, highest)
		}
		if err != nil {
			return nil, fmt.Errorf("analyzing package %q: %w", pkg.Name, err)
		}
		if rel == nil {
			continue
		}
		rel.IncludeAuthor = resolved.Changelog.IncludeAuthor
		out = append(out, projectedRelease{Package: pkg, Release: rel})
	}
	return out, nil
}

func toSemverPrerelease(p *types.PrereleaseConfig) *semver.PrereleaseOptions {
	if p == nil {
		return nil
	}
	kind := semver.PrereleaseVersioned
	if p.Strategy == types.PrereleaseStatic {
		kind = semver.PrereleaseStatic
	}
	return &semver.PrereleaseOptions{Suffix: p.Suffix, Kind: kind}
}

// bareVersion strips a package's tag prefix from a tag name, recovering
// the bare semver string embedded in PR titles/sections.
func bareVersion(tagName, tagPrefix string) string {
	if len(tagName) > len(tagPrefix) && tagName[:len(tagPrefix)] == tagPrefix {
		return tagName[len(tagPrefix):]
	}
	return tagName
}
