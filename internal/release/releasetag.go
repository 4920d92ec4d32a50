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
	"strings"

	"github.com/releasaurus/releasaurus/internal/config"
	"github.com/releasaurus/releasaurus/internal/forge"
	"github.com/releasaurus/releasaurus/internal/prbody"
	"github.com/releasaurus/releasaurus/internal/types"
)

// Release runs spec.md §4.9's phase two: for each configured release
// branch, locate its merged release PR, tag each package's merge commit,
// publish a forge release per tag, and swap the PR's label from pending
// to tagged. Returns false when no branch had a merged release PR to
// process.
func (o *Orchestrator) Release(ctx context.Context, resolved *config.Resolved) (bool, error) {
	branchOrder, groups := groupPackagesByBranch(resolved.Packages, resolved.BaseBranch, resolved.SeparatePullRequests)

	didWork := false
	var autoStart []*types.Package

	for _, branch := range branchOrder {
		packages := groups[branch]
		pr, err := o.Forge.GetMergedReleasePR(ctx, forge.ReleasePRQuery{HeadBranch: branch, BaseBranch: resolved.BaseBranch})
		if err != nil {
			return didWork, err
		}
		if pr == nil {
			continue
		}

		for _, pkg := range packages {
			section, err := prbody.Decode(pr.Body, pkg.Name)
			if err != nil {
				return didWork, err
			}

			// Tagging is upsert-safe: retrying after a prior failed run
			// that got this far is a no-op against the same sha, per
			// spec.md §5's ordering guarantees.
			if err := o.Forge.TagCommit(ctx, section.Tag, pr.SHA); err != nil {
				return didWork, fmt.Errorf("tagging %q: %w", section.Tag, err)
			}

			existing, err := o.Forge.GetReleaseByTag(ctx, section.Tag)
			if err != nil {
				return didWork, fmt.Errorf("checking existing release %q: %w", section.Tag, err)
			}
			if existing == nil {
				if err := o.Forge.CreateRelease(ctx, forge.CreateReleaseRequest{
					TagName: section.Tag,
					SHA:     pr.SHA,
					Name:    section.Tag,
					Notes:   strings.TrimSpace(section.Notes),
				}); err != nil {
					return didWork, fmt.Errorf("publishing release %q: %w", section.Tag, err)
				}
			}

			if pkg.AutoStartNext {
				autoStart = append(autoStart, pkg)
			}
		}

		if err := o.Forge.ReplacePRLabels(ctx, pr.Number, []string{forge.TaggedLabel}); err != nil {
			return didWork, fmt.Errorf("labeling release pr #%d: %w", pr.Number, err)
		}
		didWork = true
	}

	if len(autoStart) > 0 {
		if _, err := o.releasePRFor(ctx, resolved, autoStart); err != nil {
			return didWork, fmt.Errorf("seeding next release pr: %w", err)
		}
	}

	return didWork, nil
}
