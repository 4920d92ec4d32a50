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
	"strings"
	"testing"
	"time"

	"github.com/releasaurus/releasaurus/internal/semver"
	"github.com/releasaurus/releasaurus/internal/types"
)

func TestNormalizeCollapsesNewlineRuns(t *testing.T) {
	in := "one\n\n\n\ntwo\n\n\nthree"
	got := Normalize(in)
	if strings.Contains(got, "\n\n\n") {
		t.Errorf("Normalize() left a run of 3+ newlines: %q", got)
	}
	if got != Normalize(got) {
		t.Errorf("Normalize() is not idempotent: %q vs %q", got, Normalize(got))
	}
}

func TestNormalizePathIdempotent(t *testing.T) {
	for _, p := range []string{`a\b\c`, "./a/./b", "a//b///c", "plain/path"} {
		got := NormalizePath(p)
		if strings.Contains(got, `\`) {
			t.Errorf("NormalizePath(%q) = %q, contains backslash", p, got)
		}
		if strings.Contains(got, "./") {
			t.Errorf("NormalizePath(%q) = %q, contains ./ subsequence", p, got)
		}
		if again := NormalizePath(got); again != got {
			t.Errorf("NormalizePath() not idempotent: %q vs %q", got, again)
		}
	}
}

func TestRenderGroupsAndOrders(t *testing.T) {
	commits := []types.Commit{
		{Group: types.GroupChore, Title: "Bump deps", ShortID: "abc1234", Link: "link1"},
		{Group: types.GroupFeat, Title: "Add widgets", ShortID: "def5678", Link: "link2"},
		{Group: types.GroupBreaking, Title: "Remove old api", ShortID: "aaa1111", Link: "link3", Breaking: true, BreakingDescription: "old api gone"},
		{Group: types.GroupFeat, Title: "Merged work", ShortID: "zzz9999", Link: "link4", MergeCommit: true},
	}
	out, err := Render(commits)
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	breakingIdx := strings.Index(out, types.GroupBreaking.Heading())
	featIdx := strings.Index(out, types.GroupFeat.Heading())
	choreIdx := strings.Index(out, types.GroupChore.Heading())
	if breakingIdx == -1 || featIdx == -1 || choreIdx == -1 {
		t.Fatalf("Render() output missing expected headings: %q", out)
	}
	if !(breakingIdx < featIdx && featIdx < choreIdx) {
		t.Errorf("Render() sections out of order: breaking=%d feat=%d chore=%d", breakingIdx, featIdx, choreIdx)
	}
	if strings.Contains(out, "Merged work") {
		t.Errorf("Render() should exclude merge commits, got: %q", out)
	}
	if !strings.Contains(out, "old api gone") {
		t.Errorf("Render() should include breaking description, got: %q", out)
	}
}

func TestAnalyzeNoCommitsReturnsNil(t *testing.T) {
	rel, err := Analyze(&types.Package{}, nil, nil, "", "", "v", semver.NewStrategy(nil), semver.ChangeNone)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if rel != nil {
		t.Errorf("Analyze() = %+v, want nil", rel)
	}
}

func TestAnalyzeFirstRelease(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	commits := []types.Commit{
		{ID: "b2", ShortID: "b2", Group: types.GroupFeat, Title: "Add thing", Timestamp: now},
		{ID: "a1", ShortID: "a1", Group: types.GroupFix, Title: "Fix thing", Timestamp: now.Add(-time.Hour)},
	}
	rel, err := Analyze(&types.Package{}, nil, commits, "https://example.com/commit", "https://example.com/release", "v", semver.NewStrategy(nil), semver.ChangeMinor)
	if err != nil {
		t.Fatalf("Analyze() failed: %v", err)
	}
	if rel == nil {
		t.Fatal("Analyze() = nil, want a release")
	}
	if rel.Tag.Name != "v0.1.0" {
		t.Errorf("Tag.Name = %q, want v0.1.0", rel.Tag.Name)
	}
	if rel.SHA != "b2" {
		t.Errorf("SHA = %q, want b2 (the newest commit)", rel.SHA)
	}
	if len(rel.Commits) != 2 {
		t.Fatalf("len(Commits) = %d, want 2", len(rel.Commits))
	}
	if rel.Commits[0].ID != "a1" || rel.Commits[1].ID != "b2" {
		t.Errorf("Commits not reordered oldest-first: %+v", rel.Commits)
	}
	if rel.Link != "https://example.com/release/v0.1.0" {
		t.Errorf("Link = %q", rel.Link)
	}
}

func TestBuildChangelogFilePrepends(t *testing.T) {
	rel := &types.Release{
		Tag:       &types.Tag{Name: "v1.1.0"},
		Link:      "https://example.com/release/v1.1.0",
		Notes:     "### Features\n\n* Add thing (abc1234)",
		Timestamp: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	existing := defaultHeader + "\n## [v1.0.0](https://example.com/release/v1.0.0) (2026-01-01)\n\nold notes\n"
	fc := BuildChangelogFile("CHANGELOG.md", existing, rel, WriteRules{})
	if fc.Kind != types.FileChangeReplace {
		t.Errorf("Kind = %v, want Replace", fc.Kind)
	}
	newIdx := strings.Index(fc.Content, "v1.1.0")
	oldIdx := strings.Index(fc.Content, "v1.0.0")
	if newIdx == -1 || oldIdx == -1 || newIdx > oldIdx {
		t.Errorf("new section not prepended ahead of old: %q", fc.Content)
	}
}
