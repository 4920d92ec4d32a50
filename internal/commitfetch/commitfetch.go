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

// Package commitfetch batches commit retrieval across configured packages,
// per spec.md §4.7: when every package already has a tag, one request
// covers them all; otherwise each package is fetched independently and
// raw commits are deduplicated by SHA.
package commitfetch

import (
	"context"
	"sort"
	"strings"

	"github.com/releasaurus/releasaurus/internal/forge"
	"github.com/releasaurus/releasaurus/internal/types"
)

// PackageTag pairs a resolved package with its most recent matching tag,
// if any.
type PackageTag struct {
	Package *types.Package
	Tag     *types.Tag // nil if the package has never been tagged
}

// Result is the per-package commit set the optimizer produces, still in
// raw (unclassified) form.
type Result struct {
	Tag     *types.Tag
	Commits []types.ForgeCommit // newest first, matching Forge.GetCommits order
}

// Fetch resolves each package's latest tag, then retrieves commits for all
// packages using the oldest-common-tag strategy when possible.
func Fetch(ctx context.Context, f forge.Forge, branch string, packages []*types.Package, searchDepth int) (map[string]*Result, error) {
	tags := make([]PackageTag, 0, len(packages))
	for _, pkg := range packages {
		tag, err := f.GetLatestTagForPrefix(ctx, pkg.TagPrefix)
		if err != nil {
			return nil, err
		}
		tags = append(tags, PackageTag{Package: pkg, Tag: tag})
	}

	if allTagged(tags) {
		return fetchOldestCommon(ctx, f, branch, tags)
	}
	return fetchPerPackage(ctx, f, branch, tags, searchDepth)
}

func allTagged(tags []PackageTag) bool {
	for _, pt := range tags {
		if pt.Tag == nil {
			return false
		}
	}
	return len(tags) > 0
}

// fetchOldestCommon issues a single Forge.GetCommits call bounded by the
// oldest tag across all packages, then filters per package by changed
// path and by the package's own tag timestamp. Packages are attributed
// deepest-path-first so a commit touching a nested package isn't also
// claimed by a parent workspace package.
func fetchOldestCommon(ctx context.Context, f forge.Forge, branch string, tags []PackageTag) (map[string]*Result, error) {
	oldest := tags[0].Tag
	for _, pt := range tags[1:] {
		if pt.Tag.Timestamp != nil && (oldest.Timestamp == nil || pt.Tag.Timestamp.Before(*oldest.Timestamp)) {
			oldest = pt.Tag
		}
	}

	all, err := f.GetCommits(ctx, branch, oldest.SHA, 0)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*Result, len(tags))
	claimed := map[string]bool{}
	for _, pt := range sortTagsByPathDepth(tags) {
		out[pt.Package.Name] = &Result{
			Tag:     pt.Tag,
			Commits: claimUnclaimed(filterForPackage(all, pt.Package, pt.Tag), claimed),
		}
	}
	return out, nil
}

// fetchPerPackage issues one Forge.GetCommits call per package (since its
// own tag, or since the branch head bounded by searchDepth if untagged),
// deduplicating raw commits by SHA in a shared cache. Packages are
// attributed deepest-path-first, same as fetchOldestCommon.
func fetchPerPackage(ctx context.Context, f forge.Forge, branch string, tags []PackageTag, searchDepth int) (map[string]*Result, error) {
	cache := map[string]types.ForgeCommit{}
	out := make(map[string]*Result, len(tags))
	claimed := map[string]bool{}

	for _, pt := range sortTagsByPathDepth(tags) {
		sinceSHA := ""
		depth := searchDepth
		if pt.Tag != nil {
			sinceSHA = pt.Tag.SHA
			depth = 0
		}
		commits, err := f.GetCommits(ctx, branch, sinceSHA, depth)
		if err != nil {
			return nil, err
		}
		for _, c := range commits {
			if _, ok := cache[c.SHA]; !ok {
				cache[c.SHA] = c
			}
		}
		out[pt.Package.Name] = &Result{
			Tag:     pt.Tag,
			Commits: claimUnclaimed(filterForPackage(dedupedInOrder(commits, cache), pt.Package, pt.Tag), claimed),
		}
	}
	return out, nil
}

// claimUnclaimed keeps only commits not already attributed to a deeper
// package, marking the ones it keeps as claimed.
func claimUnclaimed(commits []types.ForgeCommit, claimed map[string]bool) []types.ForgeCommit {
	var out []types.ForgeCommit
	for _, c := range commits {
		if claimed[c.SHA] {
			continue
		}
		claimed[c.SHA] = true
		out = append(out, c)
	}
	return out
}

// sortTagsByPathDepth orders package tags deepest-path-first, matching
// SortPackagesByPathDepth's package ordering.
func sortTagsByPathDepth(tags []PackageTag) []PackageTag {
	pkgs := make([]*types.Package, len(tags))
	byName := make(map[string]PackageTag, len(tags))
	for i, pt := range tags {
		pkgs[i] = pt.Package
		byName[pt.Package.Name] = pt
	}
	ordered := SortPackagesByPathDepth(pkgs)
	out := make([]PackageTag, len(ordered))
	for i, pkg := range ordered {
		out[i] = byName[pkg.Name]
	}
	return out
}

// dedupedInOrder replaces each commit with its cached (first-seen) copy,
// preserving the caller's ordering.
func dedupedInOrder(commits []types.ForgeCommit, cache map[string]types.ForgeCommit) []types.ForgeCommit {
	out := make([]types.ForgeCommit, len(commits))
	for i, c := range commits {
		out[i] = cache[c.SHA]
	}
	return out
}

// filterForPackage retains only commits whose changed-file set intersects
// the package's path (or additional_paths), and whose timestamp is newer
// than the package's own tag (if any).
func filterForPackage(commits []types.ForgeCommit, pkg *types.Package, tag *types.Tag) []types.ForgeCommit {
	paths := packagePaths(pkg)
	var out []types.ForgeCommit
	for _, c := range commits {
		if tag != nil && tag.Timestamp != nil && !c.Timestamp.After(*tag.Timestamp) {
			continue
		}
		if !touchesAny(c.ChangedPaths, paths) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func packagePaths(pkg *types.Package) []string {
	paths := []string{pkg.NormalizedFullPath}
	paths = append(paths, pkg.NormalizedAdditionalPath...)
	return paths
}

// touchesAny reports whether any changed path is under one of the given
// package path prefixes. A package rooted at "." matches every path.
func touchesAny(changed, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "." || prefix == "" {
			return len(changed) > 0
		}
		for _, c := range changed {
			if c == prefix || strings.HasPrefix(c, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// SortPackagesByPathDepth orders packages deepest-path-first, so that
// commits touching a nested package are attributed to it before a parent
// workspace package also claims them.
func SortPackagesByPathDepth(packages []*types.Package) []*types.Package {
	out := make([]*types.Package, len(packages))
	copy(out, packages)
	sort.Slice(out, func(i, j int) bool {
		return strings.Count(out[i].NormalizedFullPath, "/") > strings.Count(out[j].NormalizedFullPath, "/")
	})
	return out
}
