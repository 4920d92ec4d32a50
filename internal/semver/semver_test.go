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

package semver

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	for _, test := range []struct {
		name          string
		version       string
		want          Version
		wantErr       bool
		wantErrPhrase string
	}{
		{
			name:    "valid version",
			version: "1.2.3",
			want:    Version{Major: 1, Minor: 2, Patch: 3},
		},
		{
			name:          "invalid version with v prefix",
			version:       "v1.2.3",
			wantErr:       true,
			wantErrPhrase: "invalid semantic version",
		},
		{
			name:    "valid version with prerelease",
			version: "1.2.3-alpha.1",
			want: Version{
				Major: 1, Minor: 2, Patch: 3,
				Prerelease: "alpha", PrereleaseSeparator: ".", PrereleaseNumber: "1",
			},
		},
		{
			name:    "valid version with bare identifier",
			version: "1.2.3-SNAPSHOT",
			want:    Version{Major: 1, Minor: 2, Patch: 3, Prerelease: "SNAPSHOT"},
		},
		{
			name:          "invalid version",
			version:       "1.2",
			wantErr:       true,
			wantErrPhrase: "invalid semantic version",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, err := Parse(test.version)
			if test.wantErr {
				if err == nil {
					t.Fatal("Parse() should have failed")
				}
				if !strings.Contains(err.Error(), test.wantErrPhrase) {
					t.Errorf("Parse() returned error %q, want to contain %q", err.Error(), test.wantErrPhrase)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVersionString(t *testing.T) {
	for _, test := range []struct {
		name    string
		version Version
		want    string
	}{
		{name: "simple version", version: Version{Major: 1, Minor: 2, Patch: 3}, want: "1.2.3"},
		{
			name:    "with prerelease counter",
			version: Version{Major: 1, Minor: 2, Patch: 3, Prerelease: "alpha", PrereleaseSeparator: ".", PrereleaseNumber: "1"},
			want:    "1.2.3-alpha.1",
		},
		{
			name:    "with bare identifier",
			version: Version{Major: 1, Minor: 2, Patch: 3, Prerelease: "SNAPSHOT"},
			want:    "1.2.3-SNAPSHOT",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			if got := test.version.String(); got != test.want {
				t.Errorf("String() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDeriveNextStable(t *testing.T) {
	for _, test := range []struct {
		name    string
		level   ChangeLevel
		current string
		flags   BumpFlags
		want    string
	}{
		{name: "major bump", level: ChangeMajor, current: "1.2.3", want: "2.0.0"},
		{name: "minor bump", level: ChangeMinor, current: "1.2.3", want: "1.3.0"},
		{name: "patch bump", level: ChangePatch, current: "1.2.3", want: "1.2.4"},
		{name: "no bump", level: ChangeNone, current: "1.2.3", want: "1.2.3"},
		{
			name: "pre-1.0 feat is minor bump without override",
			level: ChangeMinor, current: "0.2.3", want: "0.3.0",
		},
		{
			name: "pre-1.0 breaking is minor bump without override",
			level: ChangeMajor, current: "0.2.3", want: "0.3.0",
		},
		{
			name: "pre-1.0 breaking is major bump with override",
			level: ChangeMajor, current: "0.5.0",
			flags: BumpFlags{BreakingAlwaysIncrementMajor: true},
			want:  "1.0.0",
		},
		{name: "graduation from prerelease with no new commits", level: ChangeNone, current: "1.1.0-alpha.4", want: "1.1.0"},
		{name: "graduation from prerelease with a bump", level: ChangePatch, current: "1.1.0-alpha.4", want: "1.1.1"},
	} {
		t.Run(test.name, func(t *testing.T) {
			cur, err := Parse(test.current)
			if err != nil {
				t.Fatalf("Parse() failed: %v", err)
			}
			got := DeriveNextStable(test.level, &cur, test.flags)
			if diff := cmp.Diff(test.want, got.String()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDeriveNextStableFirstRelease(t *testing.T) {
	got := DeriveNextStable(ChangeMajor, nil, BumpFlags{})
	if got.String() != "0.1.0" {
		t.Errorf("DeriveNextStable(nil) = %q, want 0.1.0", got.String())
	}
}

func TestCompare(t *testing.T) {
	for _, test := range []struct {
		name string
		a, b string
		want int
	}{
		{name: "equal", a: "1.2.3", b: "1.2.3", want: 0},
		{name: "equal with prerelease", a: "1.2.3-alpha.4", b: "1.2.3-alpha.4", want: 0},
		{name: "less than patch", a: "1.2.3", b: "1.2.4", want: -1},
		{name: "less than minor", a: "1.2.3", b: "1.3.0", want: -1},
		{name: "less than major", a: "1.2.3", b: "2.0.0", want: -1},
		{name: "less than prerelease identifier", a: "1.2.3-alpha", b: "1.2.3-beta", want: -1},
		{name: "less than prerelease number", a: "1.2.3-alpha.1", b: "1.2.3-alpha.2", want: -1},
		{name: "prerelease sorts below stable", a: "1.2.3-alpha.1", b: "1.2.3", want: -1},
		{name: "stable sorts above prerelease", a: "1.2.3", b: "1.2.3-alpha.1", want: 1},
		{name: "greater than patch", a: "1.2.4", b: "1.2.3", want: 1},
	} {
		t.Run(test.name, func(t *testing.T) {
			a, err := Parse(test.a)
			if err != nil {
				t.Fatalf("Parse(a) failed: %v", err)
			}
			b, err := Parse(test.b)
			if err != nil {
				t.Fatalf("Parse(b) failed: %v", err)
			}
			got := Compare(a, b)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMaxVersion(t *testing.T) {
	a, _ := Parse("1.2.4")
	b, _ := Parse("1.2.3")
	if got := MaxVersion(a, b); got.String() != "1.2.4" {
		t.Errorf("MaxVersion() = %q, want 1.2.4", got.String())
	}
	if got := MaxVersion(b, a); got.String() != "1.2.4" {
		t.Errorf("MaxVersion() = %q, want 1.2.4", got.String())
	}
}

func TestStrategies(t *testing.T) {
	for _, test := range []struct {
		name    string
		opts    *PrereleaseOptions
		current string // empty means first release
		level   ChangeLevel
		want    string
	}{
		{name: "stable first release", opts: nil, level: ChangeMinor, want: "0.1.0"},
		{name: "stable patch bump", opts: nil, current: "1.2.3", level: ChangePatch, want: "1.2.4"},
		{
			name: "versioned prerelease first release",
			opts: &PrereleaseOptions{Suffix: "alpha", Kind: PrereleaseVersioned},
			level: ChangeMinor, want: "0.1.0-alpha.1",
		},
		{
			name: "versioned prerelease continuation",
			opts: &PrereleaseOptions{Suffix: "alpha", Kind: PrereleaseVersioned},
			current: "1.1.0-alpha.3", level: ChangePatch, want: "1.1.0-alpha.4",
		},
		{
			name: "versioned prerelease from stable",
			opts: &PrereleaseOptions{Suffix: "beta", Kind: PrereleaseVersioned},
			current: "1.0.0", level: ChangeMinor, want: "1.1.0-beta.1",
		},
		{
			name: "versioned prerelease different identifier graduates first",
			opts: &PrereleaseOptions{Suffix: "beta", Kind: PrereleaseVersioned},
			current: "1.1.0-alpha.3", level: ChangeNone, want: "1.1.0-beta.1",
		},
		{
			name: "static prerelease first release",
			opts: &PrereleaseOptions{Suffix: "SNAPSHOT", Kind: PrereleaseStatic},
			level: ChangeMinor, want: "0.1.0-SNAPSHOT",
		},
		{
			name: "static prerelease from stable",
			opts: &PrereleaseOptions{Suffix: "SNAPSHOT", Kind: PrereleaseStatic},
			current: "1.0.0", level: ChangePatch, want: "1.0.1-SNAPSHOT",
		},
		{
			name: "static prerelease same identifier re-derives stable",
			opts: &PrereleaseOptions{Suffix: "SNAPSHOT", Kind: PrereleaseStatic},
			current: "1.0.1-SNAPSHOT", level: ChangePatch, want: "1.0.2-SNAPSHOT",
		},
		{
			name: "graduation", opts: nil, current: "1.1.0-alpha.4", level: ChangeNone, want: "1.1.0",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			var current *Version
			if test.current != "" {
				v, err := Parse(test.current)
				if err != nil {
					t.Fatalf("Parse() failed: %v", err)
				}
				current = &v
			}
			strategy := NewStrategy(test.opts)
			got, err := strategy.ComputeNext(current, test.level, BumpFlags{})
			if err != nil {
				t.Fatalf("ComputeNext() failed: %v", err)
			}
			if diff := cmp.Diff(test.want, got.String()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
