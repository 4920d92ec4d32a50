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

package types

import "time"

// Semver is the parsed representation of a semantic version. It intentionally
// carries no build-metadata field: the release pipeline never needs it.
type Semver struct {
	Major      int
	Minor      int
	Patch      int
	Pre        string
	PreNum     string
	PreDelim   string
	BuildEmpty bool
}

// Tag is an immutable forge tag, parsed against a package's tag-prefix regex.
type Tag struct {
	SHA       string
	Name      string
	Semver    Semver
	Timestamp *time.Time
}

// ForgeCommit is the raw payload returned by a Forge's GetCommits operation,
// before conventional-commit classification.
type ForgeCommit struct {
	SHA           string
	Message       string
	Author        string
	AuthorEmail   string
	Timestamp     time.Time
	ChangedPaths  []string
	ParentCount   int
}

// Commit is a classified, rendering-ready commit.
type Commit struct {
	ID                  string
	ShortID             string
	Group               Group
	Scope               string
	Title               string
	Body                string
	Link                string
	Breaking            bool
	BreakingDescription string
	MergeCommit         bool
	Timestamp           time.Time
	AuthorName          string
	AuthorEmail         string
	RawTitle            string
	RawMessage          string
}

// Release is the in-memory accumulator for a package's next release: commits
// are appended in reverse-chronological order while walking history, then a
// tag is assigned and notes are rendered.
type Release struct {
	Tag           *Tag
	Link          string
	SHA           string
	Commits       []Commit
	Notes         string
	Timestamp     time.Time
	IncludeAuthor bool
}

// PrereleaseStrategyKind selects how a prerelease identifier advances.
type PrereleaseStrategyKind int

const (
	// PrereleaseVersioned appends ".N" and increments N on each release.
	PrereleaseVersioned PrereleaseStrategyKind = iota
	// PrereleaseStatic appends a bare identifier with no counter.
	PrereleaseStatic
)

// PrereleaseConfig describes how a package's prerelease identifier behaves.
type PrereleaseConfig struct {
	Suffix   string
	Strategy PrereleaseStrategyKind
}

// ManifestTarget is a candidate manifest file path for a given package.
type ManifestTarget struct {
	Path        string
	Basename    string
	IsWorkspace bool
}

// CompiledManifest is a user-specified "generic" manifest entry with its
// version regex compiled and validated at config-resolve time. An entry
// with a non-empty YAMLPath is rewritten as a YAML mapping key instead of
// by regex; VersionRegex is unused for those entries.
type CompiledManifest struct {
	Path         string
	VersionRegex string
	YAMLPath     string
}

// Package is a fully-resolved package, produced once by the configuration
// resolver and read-only for the remainder of the run.
type Package struct {
	Name                     string
	WorkspaceRoot            string
	Path                     string
	ReleaseType              string
	TagPrefix                string
	Prerelease               *PrereleaseConfig
	AdditionalPaths          []string
	AdditionalManifestFiles  []CompiledManifest
	BreakingAlwaysMajor      bool
	FeaturesAlwaysMinor      bool
	CustomMajorRegex         string
	CustomMinorRegex         string
	AutoStartNext            bool
	NormalizedFullPath       string
	NormalizedAdditionalPath []string
}

// FileChangeKind is the write strategy for a FileChange.
type FileChangeKind int

const (
	// FileChangeReplace overwrites the file's content entirely.
	FileChangeReplace FileChangeKind = iota
	// FileChangePrepend prepends content ahead of the existing file body.
	FileChangePrepend
)

// FileChange is one file mutation bundled into an atomic release-branch
// commit.
type FileChange struct {
	Path    string
	Content string
	Kind    FileChangeKind
}

// PullRequest is the normalized shape a Forge returns for release PRs.
// SHA is the head commit for open PRs, and the merge commit for merged PRs.
type PullRequest struct {
	Number int
	SHA    string
	Body   string
	Labels []string
	Merged bool
	Closed bool
}

// UpdaterPackage is the view of a package a manifest Updater receives: its
// resolved identity plus the next version being applied.
type UpdaterPackage struct {
	Package    *Package
	NextVersion string
	Files      map[string]string // path -> current content, as loaded from the forge
}
