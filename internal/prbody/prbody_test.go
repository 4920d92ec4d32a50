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

package prbody

import (
	"errors"
	"strings"
	"testing"

	"github.com/releasaurus/releasaurus/internal/types"
)

func TestEncodeDecode_singlePackageOpensDetails(t *testing.T) {
	sections := []Section{
		{PackageName: "core", Tag: "v1.1.0", Semver: "1.1.0", Notes: "### Features\n\n* added things"},
	}
	body := Encode(sections)

	if !strings.Contains(body, "<details open>") {
		t.Errorf("body = %q, want <details open> for single-package PR", body)
	}
	if !strings.HasPrefix(body, `<!--{"metadata":{"name":"core","tag":"v1.1.0"`) {
		t.Errorf("body envelope prefix = %q, want bit-exact metadata JSON", body)
	}

	got, err := Decode(body, "core")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Tag != "v1.1.0" || got.Notes != sections[0].Notes {
		t.Errorf("Decode() = %+v, want tag v1.1.0 and matching notes", got)
	}
}

func TestEncodeDecode_multiPackageClosedDetails(t *testing.T) {
	sections := []Section{
		{PackageName: "core", Tag: "core-v1.0.0", Semver: "1.0.0", Notes: "core notes"},
		{PackageName: "cli", Tag: "cli-v2.0.0", Semver: "2.0.0", Notes: "cli notes"},
	}
	body := Encode(sections)
	if strings.Contains(body, "<details open>") {
		t.Errorf("body = %q, want no open details block for multi-package PR", body)
	}

	for _, s := range sections {
		got, err := Decode(body, s.PackageName)
		if err != nil {
			t.Fatalf("Decode(%q) error = %v", s.PackageName, err)
		}
		if got.Tag != s.Tag {
			t.Errorf("Decode(%q).Tag = %q, want %q", s.PackageName, got.Tag, s.Tag)
		}
	}
}

func TestDecode_missingPackageIsFatal(t *testing.T) {
	body := Encode([]Section{{PackageName: "core", Tag: "v1.0.0", Semver: "1.0.0", Notes: "notes"}})
	_, err := Decode(body, "nonexistent")
	if err == nil {
		t.Fatal("Decode() error = nil, want MissingMetadataError")
	}
	var missing *types.MissingMetadataError
	if !errors.As(err, &missing) {
		t.Errorf("error = %v, want *types.MissingMetadataError", err)
	}
}

func TestDecodeAll(t *testing.T) {
	sections := []Section{
		{PackageName: "core", Tag: "core-v1.0.0", Semver: "1.0.0", Notes: "core notes"},
		{PackageName: "cli", Tag: "cli-v2.0.0", Semver: "2.0.0", Notes: "cli notes"},
	}
	body := Encode(sections)
	got := DecodeAll(body)
	if len(got) != 2 {
		t.Fatalf("DecodeAll() returned %d sections, want 2", len(got))
	}
}
