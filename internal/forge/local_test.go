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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initTestRepo creates an on-disk repository at dir with a single commit
// on "main" adding README.md, returning the commit hash.
func initTestRepo(t *testing.T, dir string) string {
	t.Helper()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	sig := &object.Signature{Name: "test", Email: "test@localhost", When: time.Now()}
	hash, err := wt.Commit("initial commit", &git.CommitOptions{Author: sig})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return hash.String()
}

func TestLocal_DefaultBranchAndFileContent(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	l, err := OpenLocal(dir)
	if err != nil {
		t.Fatalf("OpenLocal() error = %v", err)
	}

	branch, err := l.DefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}
	if branch == "" {
		t.Error("DefaultBranch() returned empty string")
	}

	content, err := l.GetFileContent(context.Background(), GetFileRequest{Path: "README.md"})
	if err != nil {
		t.Fatalf("GetFileContent() error = %v", err)
	}
	if content == nil || *content != "hello\n" {
		t.Errorf("GetFileContent() = %v, want \"hello\\n\"", content)
	}

	missing, err := l.GetFileContent(context.Background(), GetFileRequest{Path: "nope.md"})
	if err != nil {
		t.Fatalf("GetFileContent(nope.md) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetFileContent(nope.md) = %v, want nil", missing)
	}
}

func TestLocal_CreateReleaseBranchAndTagAndRelease(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)

	l, err := OpenLocal(dir)
	if err != nil {
		t.Fatalf("OpenLocal() error = %v", err)
	}
	branch, err := l.DefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}

	commit, err := l.CreateReleaseBranch(context.Background(), CreateReleaseBranchRequest{
		BaseBranch:    branch,
		ReleaseBranch: "release-please--branches--" + branch,
		Message:       "chore: release 1.0.0",
		FileChanges:   []FileChangeRequest{{Path: "VERSION", Content: "1.0.0\n"}},
	})
	if err != nil {
		t.Fatalf("CreateReleaseBranch() error = %v", err)
	}
	if commit.SHA == "" {
		t.Fatal("CreateReleaseBranch() returned empty SHA")
	}

	if err := l.TagCommit(context.Background(), "v1.0.0", commit.SHA); err != nil {
		t.Fatalf("TagCommit() error = %v", err)
	}

	if err := l.CreateRelease(context.Background(), CreateReleaseRequest{
		TagName: "v1.0.0", SHA: commit.SHA, Name: "v1.0.0", Notes: "first release",
	}); err != nil {
		t.Fatalf("CreateRelease() error = %v", err)
	}

	rel, err := l.GetReleaseByTag(context.Background(), "v1.0.0")
	if err != nil {
		t.Fatalf("GetReleaseByTag() error = %v", err)
	}
	if rel == nil {
		t.Fatal("GetReleaseByTag() = nil, want a release")
	}

	missing, err := l.GetReleaseByTag(context.Background(), "v9.9.9")
	if err != nil {
		t.Fatalf("GetReleaseByTag(v9.9.9) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetReleaseByTag(v9.9.9) = %v, want nil", missing)
	}
}

func TestLocal_noopPRMethods(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	l, err := OpenLocal(dir)
	if err != nil {
		t.Fatalf("OpenLocal() error = %v", err)
	}

	open, err := l.GetOpenReleasePR(context.Background(), ReleasePRQuery{})
	if err != nil || open != nil {
		t.Errorf("GetOpenReleasePR() = (%v, %v), want (nil, nil)", open, err)
	}
	merged, err := l.GetMergedReleasePR(context.Background(), ReleasePRQuery{})
	if err != nil || merged != nil {
		t.Errorf("GetMergedReleasePR() = (%v, %v), want (nil, nil)", merged, err)
	}
	if err := l.ReplacePRLabels(context.Background(), 1, []string{PendingLabel}); err != nil {
		t.Errorf("ReplacePRLabels() error = %v", err)
	}
}
