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
	"context"
	"fmt"
	"log/slog"

	"github.com/releasaurus/releasaurus/internal/types"
)

// DryRun wraps a Forge so every mutating operation is logged and
// short-circuited to a placeholder result, while every read operation
// passes straight through. Grounded on spec.md §9's "thin decorator"
// guidance and the teacher's mockGitHubClient embed-and-override shape.
type DryRun struct {
	Forge
}

// NewDryRun wraps inner in a dry-run decorator.
func NewDryRun(inner Forge) *DryRun {
	return &DryRun{Forge: inner}
}

func (d *DryRun) CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error) {
	slog.Info("dry-run: would create release branch", "branch", req.ReleaseBranch, "base", req.BaseBranch, "files", len(req.FileChanges))
	return types.ForgeCommit{SHA: "dryrun-sha", Message: req.Message}, nil
}

func (d *DryRun) CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error) {
	slog.Info("dry-run: would create pull request", "head", req.HeadBranch, "base", req.BaseBranch, "title", req.Title)
	return &types.PullRequest{Number: -1, SHA: "dryrun-sha", Body: req.Body, Labels: req.Labels}, nil
}

func (d *DryRun) UpdatePR(ctx context.Context, req UpdatePRRequest) error {
	slog.Info("dry-run: would update pull request", "number", req.Number, "title", req.Title)
	return nil
}

func (d *DryRun) ReplacePRLabels(ctx context.Context, number int, labels []string) error {
	slog.Info("dry-run: would replace pull request labels", "number", number, "labels", fmt.Sprint(labels))
	return nil
}

func (d *DryRun) TagCommit(ctx context.Context, tagName, sha string) error {
	slog.Info("dry-run: would create tag", "tag", tagName, "sha", sha)
	return nil
}

func (d *DryRun) CreateRelease(ctx context.Context, req CreateReleaseRequest) error {
	slog.Info("dry-run: would create release", "tag", req.TagName, "name", req.Name)
	return nil
}
