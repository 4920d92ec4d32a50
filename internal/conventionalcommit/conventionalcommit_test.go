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

package conventionalcommit

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/releasaurus/releasaurus/internal/types"
)

func commit(sha, message string, parents int) types.ForgeCommit {
	return types.ForgeCommit{
		SHA:         sha,
		Message:     message,
		Author:      "Ada Lovelace",
		AuthorEmail: "ada@example.com",
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ParentCount: parents,
	}
}

func TestClassifyBasic(t *testing.T) {
	for _, test := range []struct {
		name      string
		message   string
		wantGroup types.Group
		wantScope string
		wantTitle string
	}{
		{name: "feat", message: "feat: add widgets", wantGroup: types.GroupFeat, wantTitle: "Add widgets"},
		{name: "fix with scope", message: "fix(api): handle nil", wantGroup: types.GroupFix, wantScope: "api", wantTitle: "Handle nil"},
		{name: "chore", message: "chore: bump deps", wantGroup: types.GroupChore, wantTitle: "Bump deps"},
		{name: "ci", message: "ci: add workflow", wantGroup: types.GroupCi, wantTitle: "Add workflow"},
		{name: "docs alias", message: "docs: update readme", wantGroup: types.GroupDoc, wantTitle: "Update readme"},
		{name: "doc alias", message: "doc: update readme", wantGroup: types.GroupDoc, wantTitle: "Update readme"},
		{name: "perf", message: "perf: speed up loop", wantGroup: types.GroupPerf, wantTitle: "Speed up loop"},
		{name: "refactor", message: "refactor: extract helper", wantGroup: types.GroupRefactor, wantTitle: "Extract helper"},
		{name: "revert", message: "revert: undo bad change", wantGroup: types.GroupRevert, wantTitle: "Undo bad change"},
		{name: "style", message: "style: gofmt", wantGroup: types.GroupStyle, wantTitle: "Gofmt"},
		{name: "test", message: "test: add coverage", wantGroup: types.GroupTest, wantTitle: "Add coverage"},
		{name: "unknown type falls to miscellaneous", message: "wip: half done", wantGroup: types.GroupMiscellaneous, wantTitle: "Half done"},
		{name: "non-conventional message falls to miscellaneous", message: "fixed the thing", wantGroup: types.GroupMiscellaneous, wantTitle: "fixed the thing"},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Classify(commit("abc1234567", test.message, 1), Policy{})
			if err != nil {
				t.Fatalf("Classify() failed: %v", err)
			}
			if got == nil {
				t.Fatal("Classify() returned nil, want a commit")
			}
			if got.Group != test.wantGroup {
				t.Errorf("Group = %v, want %v", got.Group, test.wantGroup)
			}
			if got.Scope != test.wantScope {
				t.Errorf("Scope = %q, want %q", got.Scope, test.wantScope)
			}
			if got.Title != test.wantTitle {
				t.Errorf("Title = %q, want %q", got.Title, test.wantTitle)
			}
			if got.ShortID != "abc1234" {
				t.Errorf("ShortID = %q, want abc1234", got.ShortID)
			}
		})
	}
}

func TestClassifyBreakingTakesPrecedence(t *testing.T) {
	for _, test := range []struct {
		name    string
		message string
		wantDesc string
	}{
		{name: "bang on feat", message: "feat(api)!: remove old endpoint"},
		{
			name: "footer on fix",
			message: "fix: patch bug\n\nBREAKING CHANGE: removes the legacy flag",
			wantDesc: "removes the legacy flag",
		},
		{
			name: "footer with hyphen spelling",
			message: "fix: patch bug\n\nBREAKING-CHANGE: removes the legacy flag",
			wantDesc: "removes the legacy flag",
		},
		{
			name: "multi-line breaking description stops at next footer",
			message: "feat: add thing\n\nBREAKING CHANGE: first line\nsecond line\n\nReviewed-by: someone",
			wantDesc: "first line second line",
		},
		{
			name:     "footer on non-conventional header",
			message:  "Update the build script\n\nBREAKING CHANGE: drops support for the old flag",
			wantDesc: "drops support for the old flag",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Classify(commit("abc1234567", test.message, 1), Policy{})
			if err != nil {
				t.Fatalf("Classify() failed: %v", err)
			}
			if got.Group != types.GroupBreaking {
				t.Errorf("Group = %v, want GroupBreaking", got.Group)
			}
			if !got.Breaking {
				t.Error("Breaking = false, want true")
			}
			if test.wantDesc != "" && got.BreakingDescription != test.wantDesc {
				t.Errorf("BreakingDescription = %q, want %q", got.BreakingDescription, test.wantDesc)
			}
		})
	}
}

func TestClassifySkipPolicies(t *testing.T) {
	for _, test := range []struct {
		name   string
		commit types.ForgeCommit
		policy Policy
	}{
		{name: "skip ci", commit: commit("a", "ci: add workflow", 1), policy: Policy{SkipCI: true}},
		{name: "skip chore", commit: commit("b", "chore: bump deps", 1), policy: Policy{SkipChore: true}},
		{name: "skip miscellaneous", commit: commit("c", "wip: half done", 1), policy: Policy{SkipMiscellaneous: true}},
		{name: "skip merge commits", commit: commit("d", "feat: merged work", 2), policy: Policy{SkipMergeCommits: true}},
		{
			name:   "skip release commits by pattern",
			commit: commit("e", "chore(release): 1.2.3", 1),
			policy: Policy{SkipReleaseCommits: regexp.MustCompile(`^chore\(release\):`)},
		},
		{name: "skip by sha prefix", commit: commit("deadbeef00", "feat: add widgets", 1), policy: Policy{SkipSHAs: []string{"deadbee"}}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Classify(test.commit, test.policy)
			if err != nil {
				t.Fatalf("Classify() failed: %v", err)
			}
			if got != nil {
				t.Errorf("Classify() = %+v, want nil (filtered)", got)
			}
		})
	}
}

func TestClassifyReword(t *testing.T) {
	got, err := Classify(commit("deadbeef00", "wip: temp message", 1), Policy{
		Reword: map[string]string{"deadbee": "fix: correct the thing"},
	})
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	if got.Group != types.GroupFix {
		t.Errorf("Group = %v, want GroupFix", got.Group)
	}
	if got.Title != "Correct the thing" {
		t.Errorf("Title = %q, want %q", got.Title, "Correct the thing")
	}
}

func TestClassifyPreservesMetadata(t *testing.T) {
	c := commit("abc1234567", "feat(core): add thing\n\nlonger body here", 1)
	got, err := Classify(c, Policy{})
	if err != nil {
		t.Fatalf("Classify() failed: %v", err)
	}
	want := &types.Commit{
		ID:         "abc1234567",
		ShortID:    "abc1234",
		Group:      types.GroupFeat,
		Scope:      "core",
		Title:      "Add thing",
		Body:       "longer body here",
		Timestamp:  c.Timestamp,
		AuthorName: "Ada Lovelace",
		AuthorEmail: "ada@example.com",
		RawTitle:   "feat(core): add thing",
		RawMessage: c.Message,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}
