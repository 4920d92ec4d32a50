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

import "testing"

func TestParseGitLabURL(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		wantAPI     string
		wantProject string
		wantErr     bool
	}{
		{
			name:        "self-hosted instance",
			url:         "https://gitlab.example.com/group/subgroup/project.git",
			wantAPI:     "https://gitlab.example.com/api/v4",
			wantProject: "group/subgroup/project",
		},
		{
			name:    "unsupported scheme",
			url:     "ssh://gitlab.example.com/group/project.git",
			wantErr: true,
		},
		{
			name:    "missing path",
			url:     "https://gitlab.example.com",
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gotAPI, gotProject, err := ParseGitLabURL(test.url)
			if (err != nil) != test.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr {
				return
			}
			if gotAPI != test.wantAPI || gotProject != test.wantProject {
				t.Errorf("got (%q, %q), want (%q, %q)", gotAPI, gotProject, test.wantAPI, test.wantProject)
			}
		})
	}
}

func TestParseGiteaURL(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantAPI   string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{
			name:      "owner and repo",
			url:       "https://gitea.example.com/owner/repo",
			wantAPI:   "https://gitea.example.com/api/v1",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "trailing .git suffix",
			url:       "https://gitea.example.com/owner/repo.git",
			wantAPI:   "https://gitea.example.com/api/v1",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:    "missing repo segment",
			url:     "https://gitea.example.com/owner",
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			gotAPI, gotOwner, gotRepo, err := ParseGiteaURL(test.url)
			if (err != nil) != test.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, test.wantErr)
			}
			if test.wantErr {
				return
			}
			if gotAPI != test.wantAPI || gotOwner != test.wantOwner || gotRepo != test.wantRepo {
				t.Errorf("got (%q, %q, %q), want (%q, %q, %q)", gotAPI, gotOwner, gotRepo, test.wantAPI, test.wantOwner, test.wantRepo)
			}
		})
	}
}
