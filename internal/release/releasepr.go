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

package release

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/releasaurus/releasaurus/internal/changelog"
	"github.com/releasaurus/releasaurus/internal/config"
	"github.com/releasaurus/releasaurus/internal/forge"
	"github.com/releasaurus/releasaurus/internal/manifest"
	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/prbody"
	"github.com/releasaurus/releasaurus/internal/types"
)

// ReleasePR runs spec.md §4.9's phase one against every configured
// package: it opens or refreshes one or more release pull requests
// carrying projected versions, changelog notes, and manifest file
// changes. It returns false when nothing is releasable (a clean no-op).
func (o *Orchestrator) ReleasePR(ctx context.Context, resolved *config.Resolved) (bool, error) {
	return o.releasePRFor(ctx, resolved, resolved.Packages)
}

// releasePRFor is ReleasePR scoped to an explicit package subset, used by
// phase two's auto_start_next re-run.
func (o *Orchestrator) releasePRFor(ctx context.Context, resolved *config.Resolved, packages []*types.Package) (bool, error) {
	if len(packages) == 0 {
		return false, nil
	}

	if err := o.guardAgainstPendingRelease(ctx, resolved, packages); err != nil {
		return false, err
	}

	projected, err := o.computeProjected(ctx, resolved, packages)
	if err != nil {
		return false, err
	}
	if len(projected) == 0 {
		slog.Info("no releasable changes found")
		return false, nil
	}

	branchOrder, groups := groupByBranch(projected, resolved.BaseBranch, resolved.SeparatePullRequests)

	// Cross-package dependency coordination runs over every releasable
	// package in this invocation, regardless of which branch/PR it lands
	// on, per spec.md §4.5.
	workspacePackages, err := o.loadUpdaterPackages(ctx, resolved, projected)
	if err != nil {
		return false, err
	}
	byName := map[string]types.UpdaterPackage{}
	for _, up := range workspacePackages {
		byName[up.Package.Name] = up
	}

	for _, branch := range branchOrder {
		group := groups[branch]
		if err := o.openOrRefreshPR(ctx, resolved, branch, group, byName); err != nil {
			return false, err
		}
	}
	return true, nil
}

// guardAgainstPendingRelease implements the state-machine invariant spec.md
// §4.9 requires at every phase-one invocation: a merged-but-not-tagged
// release PR on a branch this invocation would target must be resolved by
// phase two first.
func (o *Orchestrator) guardAgainstPendingRelease(ctx context.Context, resolved *config.Resolved, packages []*types.Package) error {
	seen := map[string]bool{}
	for _, pkg := range packages {
		branch := releaseBranchName(resolved.BaseBranch, pkg, resolved.SeparatePullRequests)
		if seen[branch] {
			continue
		}
		seen[branch] = true
		pr, err := o.Forge.GetMergedReleasePR(ctx, forge.ReleasePRQuery{HeadBranch: branch, BaseBranch: resolved.BaseBranch})
		if err != nil {
			return err
		}
		if pr != nil {
			return &types.PendingReleaseError{PullRequestNumber: pr.Number}
		}
	}
	return nil
}

// loadUpdaterPackages loads every manifest file a projected release's
// manifest targets name, building the types.UpdaterPackage views the
// manifest registry's Update operates on.
func (o *Orchestrator) loadUpdaterPackages(ctx context.Context, resolved *config.Resolved, projected []projectedRelease) ([]types.UpdaterPackage, error) {
	out := make([]types.UpdaterPackage, 0, len(projected))
	for _, p := range projected {
		targets := manifest.TargetsFor(p.Package)
		files := map[string]string{}
		for _, t := range targets {
			content, err := o.Forge.GetFileContent(ctx, forge.GetFileRequest{Branch: resolved.BaseBranch, Path: t.Path})
			if err != nil {
				return nil, fmt.Errorf("loading manifest %q: %w", t.Path, err)
			}
			if content != nil {
				files[t.Path] = *content
			}
		}
		out = append(out, types.UpdaterPackage{
			Package:     p.Package,
			NextVersion: bareVersion(p.Release.Tag.Name, p.Package.TagPrefix),
			Files:       files,
		})
	}
	return out, nil
}

// openOrRefreshPR assembles one release branch's file changes and PR
// body, then either refreshes an existing open release PR or creates a
// new one, per spec.md §4.9 steps 6-9.
func (o *Orchestrator) openOrRefreshPR(ctx context.Context, resolved *config.Resolved, branch string, group []projectedRelease, byName map[string]types.UpdaterPackage) error {
	var fileChanges []forge.FileChangeRequest
	seenPaths := map[string]bool{}
	var sections []prbody.Section

	var workspacePackages []types.UpdaterPackage
	for _, up := range byName {
		workspacePackages = append(workspacePackages, up)
	}

	for _, p := range group {
		up := byName[p.Package.Name]
		changes, err := manifest.UpdateFor(up, workspacePackages)
		if err != nil {
			return fmt.Errorf("updating manifests for %q: %w", p.Package.Name, err)
		}
		for _, c := range changes {
			if seenPaths[c.Path] {
				continue
			}
			seenPaths[c.Path] = true
			fileChanges = append(fileChanges, toFileChangeRequest(c))
		}

		changelogPath := shared.JoinPath(p.Package.Path, "CHANGELOG.md")
		existing, err := o.Forge.GetFileContent(ctx, forge.GetFileRequest{Branch: resolved.BaseBranch, Path: changelogPath})
		if err != nil {
			return fmt.Errorf("loading changelog %q: %w", changelogPath, err)
		}
		existingContent := ""
		if existing != nil {
			existingContent = *existing
		}
		changelogChange := changelog.BuildChangelogFile(changelogPath, existingContent, p.Release, changelog.WriteRules{})
		if !seenPaths[changelogChange.Path] {
			seenPaths[changelogChange.Path] = true
			fileChanges = append(fileChanges, toFileChangeRequest(changelogChange))
		}

		sections = append(sections, prbody.Section{
			PackageName: p.Package.Name,
			Tag:         p.Release.Tag.Name,
			Semver:      bareVersion(p.Release.Tag.Name, p.Package.TagPrefix),
			Notes:       p.Release.Notes,
		})
	}

	title := fmt.Sprintf("chore(%s): release", resolved.BaseBranch)
	if len(group) == 1 {
		title = fmt.Sprintf("%s %s", title, group[0].Release.Tag.Name)
	}
	body := prbody.Encode(sections)

	_, err := o.Forge.CreateReleaseBranch(ctx, forge.CreateReleaseBranchRequest{
		BaseBranch:    resolved.BaseBranch,
		ReleaseBranch: branch,
		Message:       title,
		FileChanges:   fileChanges,
	})
	if err != nil {
		return fmt.Errorf("creating release branch %q: %w", branch, err)
	}

	query := forge.ReleasePRQuery{HeadBranch: branch, BaseBranch: resolved.BaseBranch}
	existingPR, err := o.Forge.GetOpenReleasePR(ctx, query)
	if err != nil {
		return fmt.Errorf("finding open release pr for %q: %w", branch, err)
	}

	var number int
	if existingPR != nil {
		if err := o.Forge.UpdatePR(ctx, forge.UpdatePRRequest{Number: existingPR.Number, Title: title, Body: body}); err != nil {
			return fmt.Errorf("updating release pr #%d: %w", existingPR.Number, err)
		}
		number = existingPR.Number
	} else {
		created, err := o.Forge.CreatePR(ctx, forge.CreatePRRequest{
			HeadBranch: branch,
			BaseBranch: resolved.BaseBranch,
			Title:      title,
			Body:       body,
			Labels:     []string{forge.PendingLabel},
		})
		if err != nil {
			return fmt.Errorf("creating release pr for %q: %w", branch, err)
		}
		number = created.Number
	}

	if err := o.Forge.ReplacePRLabels(ctx, number, []string{forge.PendingLabel}); err != nil {
		return fmt.Errorf("labeling release pr #%d: %w", number, err)
	}
	return nil
}

func toFileChangeRequest(c types.FileChange) forge.FileChangeRequest {
	updateType := forge.UpdateReplace
	if c.Kind == types.FileChangePrepend {
		updateType = forge.UpdatePrepend
	}
	return forge.FileChangeRequest{Path: c.Path, Content: c.Content, UpdateType: updateType}
}
