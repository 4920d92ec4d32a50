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

package manifest

import (
	"reflect"
	"testing"

	"github.com/releasaurus/releasaurus/internal/manifest/generic"
	"github.com/releasaurus/releasaurus/internal/manifest/gover"
	"github.com/releasaurus/releasaurus/internal/manifest/java"
	"github.com/releasaurus/releasaurus/internal/manifest/node"
	"github.com/releasaurus/releasaurus/internal/manifest/php"
	"github.com/releasaurus/releasaurus/internal/manifest/python"
	"github.com/releasaurus/releasaurus/internal/manifest/ruby"
	"github.com/releasaurus/releasaurus/internal/manifest/rust"
	"github.com/releasaurus/releasaurus/internal/types"
)

func TestForReleaseType(t *testing.T) {
	tests := []struct {
		releaseType string
		want        any
	}{
		{"rust", &rust.Updater{}},
		{"Node", &node.Updater{}},
		{"python", &python.Updater{}},
		{"JAVA", &java.Updater{}},
		{"php", &php.Updater{}},
		{"ruby", &ruby.Updater{}},
		{"go", &gover.Updater{}},
		{"", &generic.Updater{}},
		{"unknown-ecosystem", &generic.Updater{}},
	}
	for _, test := range tests {
		got := ForReleaseType(test.releaseType)
		if got == nil {
			t.Errorf("ForReleaseType(%q) = nil", test.releaseType)
			continue
		}
		if reflect.TypeOf(got) != reflect.TypeOf(test.want) {
			t.Errorf("ForReleaseType(%q) = %T, want %T", test.releaseType, got, test.want)
		}
	}
}

func TestUpdateFor_additionalManifestFilesAppliedUniversally(t *testing.T) {
	pkg := types.UpdaterPackage{
		Package: &types.Package{
			Name:        "core",
			Path:        ".",
			ReleaseType: "go",
			AdditionalManifestFiles: []types.CompiledManifest{
				{Path: "VERSION", VersionRegex: `version\s*=\s*"(?P<version>[^"]+)"`},
			},
		},
		NextVersion: "2.0.0",
		Files: map[string]string{
			"VERSION": `version = "1.0.0"`,
		},
	}
	changes, err := UpdateFor(pkg, nil)
	if err != nil {
		t.Fatalf("UpdateFor() error = %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("UpdateFor() returned %d changes, want 1 (VERSION file rewritten alongside the go ecosystem updater)", len(changes))
	}
	if changes[0].Path != "VERSION" {
		t.Errorf("change path = %q, want VERSION", changes[0].Path)
	}
}
