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
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGitLab(t *testing.T, handler http.HandlerFunc) *GitLab {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGitLab(server.Client(), server.URL, "fake-token", "group/project")
}

func TestGitLab_DefaultBranch(t *testing.T) {
	var gotToken string
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("PRIVATE-TOKEN")
		fmt.Fprint(w, `{"default_branch": "main"}`)
	})
	got, err := g.DefaultBranch(context.Background())
	if err != nil {
		t.Fatalf("DefaultBranch() error = %v", err)
	}
	if got != "main" {
		t.Errorf("DefaultBranch() = %q, want main", got)
	}
	if gotToken != "fake-token" {
		t.Errorf("PRIVATE-TOKEN header = %q, want fake-token", gotToken)
	}
}

func TestGitLab_GetFileContent(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("hello"))
		g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `{"content": %q, "encoding": "base64"}`, encoded)
		})
		got, err := g.GetFileContent(context.Background(), GetFileRequest{Branch: "main", Path: "a.txt"})
		if err != nil {
			t.Fatalf("GetFileContent() error = %v", err)
		}
		if got == nil || *got != "hello" {
			t.Errorf("GetFileContent() = %v, want \"hello\"", got)
		}
	})

	t.Run("not found", func(t *testing.T) {
		g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		got, err := g.GetFileContent(context.Background(), GetFileRequest{Branch: "main", Path: "missing.txt"})
		if err != nil {
			t.Fatalf("GetFileContent() error = %v", err)
		}
		if got != nil {
			t.Errorf("GetFileContent() = %v, want nil", got)
		}
	})
}

func TestGitLab_CreateReleaseBranch(t *testing.T) {
	var sawActions bool
	g := newTestGitLab(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/repository/branches"):
			w.WriteHeader(http.StatusBadRequest) // already exists; CreateReleaseBranch ignores this
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/repository/commits"):
			sawActions = true
			fmt.Fprint(w, `{"id": "commitsha123"}`)
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	})

	commit, err := g.CreateReleaseBranch(context.Background(), CreateReleaseBranchRequest{
		BaseBranch:    "main",
		ReleaseBranch: "release-please--branches--main",
		Message:       "chore: release",
		FileChanges:   []FileChangeRequest{{Path: "VERSION", Content: "1.0.0\n"}},
	})
	if err != nil {
		t.Fatalf("CreateReleaseBranch() error = %v", err)
	}
	if commit.SHA != "commitsha123" {
		t.Errorf("commit.SHA = %q, want commitsha123", commit.SHA)
	}
	if !sawActions {
		t.Error("commits endpoint was never hit")
	}
}

func TestGitLab_WebURL(t *testing.T) {
	g := NewGitLab(nil, "https://gitlab.example.com/api/v4", "tok", "group/sub/project")
	commitBase, releaseBase, err := g.WebURL(context.Background())
	if err != nil {
		t.Fatalf("WebURL() error = %v", err)
	}
	wantCommit := "https://gitlab.example.com/group/sub/project/-/commit"
	wantRelease := "https://gitlab.example.com/group/sub/project/-/releases"
	if commitBase != wantCommit || releaseBase != wantRelease {
		t.Errorf("WebURL() = (%q, %q), want (%q, %q)", commitBase, releaseBase, wantCommit, wantRelease)
	}
}
