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

// Package config decodes releasaurus.toml and merges it with CLI
// overrides into a fully-resolved package list, per spec.md §4.6.
package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/releasaurus/releasaurus/internal/types"
)

// defaultGenericVersionRegex is the fallback pattern for additional
// manifest files specified as a bare path string.
const defaultGenericVersionRegex = `version\s*=\s*"(?P<version>[^"]+)"`

// RawPrerelease is the TOML shape of a [prerelease] table, shared between
// the global config and per-package overrides.
type RawPrerelease struct {
	Suffix   string `toml:"suffix"`
	Strategy string `toml:"strategy"` // "versioned" | "static"
}

// RawReword is one entry in [changelog].reword.
type RawReword struct {
	SHA     string `toml:"sha"`
	Message string `toml:"message"`
}

// RawChangelog is the TOML shape of the [changelog] table.
type RawChangelog struct {
	Body               string      `toml:"body"`
	SkipCI             bool        `toml:"skip_ci"`
	SkipChore          bool        `toml:"skip_chore"`
	SkipMiscellaneous  bool        `toml:"skip_miscellaneous"`
	SkipMergeCommits   bool        `toml:"skip_merge_commits"`
	SkipReleaseCommits bool        `toml:"skip_release_commits"`
	SkipSHAs           []string    `toml:"skip_shas"`
	IncludeAuthor      bool        `toml:"include_author"`
	Reword             []RawReword `toml:"reword"`
}

// RawManifestFile is either a bare path string or a {path, version_regex}
// or {path, yaml_path} table; the custom UnmarshalTOML below accepts all
// three. yaml_path selects the YAML-mapping-key updater instead of the
// regex one, e.g. "version" or "metadata.appVersion" for a nested key.
type RawManifestFile struct {
	Path         string
	VersionRegex string
	YAMLPath     string
}

// UnmarshalTOML accepts either a bare string (equivalent to
// {path: <string>, version_regex: <default>}) or a table.
func (m *RawManifestFile) UnmarshalTOML(value any) error {
	switch v := value.(type) {
	case string:
		m.Path = v
		m.VersionRegex = defaultGenericVersionRegex
		return nil
	case map[string]any:
		if p, ok := v["path"].(string); ok {
			m.Path = p
		}
		if y, ok := v["yaml_path"].(string); ok {
			m.YAMLPath = y
			return nil
		}
		if r, ok := v["version_regex"].(string); ok {
			m.VersionRegex = r
		} else {
			m.VersionRegex = defaultGenericVersionRegex
		}
		return nil
	default:
		return fmt.Errorf("additional_manifest_files entry must be a string or table, got %T", value)
	}
}

// RawPackage is the TOML shape of a [[package]] entry.
type RawPackage struct {
	Name                         string            `toml:"name"`
	WorkspaceRoot                string            `toml:"workspace_root"`
	Path                         string            `toml:"path"`
	ReleaseType                  string            `toml:"release_type"`
	TagPrefix                    string            `toml:"tag_prefix"`
	AdditionalPaths              []string          `toml:"additional_paths"`
	AdditionalManifestFiles      []RawManifestFile `toml:"additional_manifest_files"`
	Prerelease                   *RawPrerelease    `toml:"prerelease"`
	BreakingAlwaysIncrementMajor *bool             `toml:"breaking_always_increment_major"`
	FeaturesAlwaysIncrementMinor *bool             `toml:"features_always_increment_minor"`
	CustomMajorIncrementRegex    string            `toml:"custom_major_increment_regex"`
	CustomMinorIncrementRegex    string            `toml:"custom_minor_increment_regex"`
	AutoStartNext                bool              `toml:"auto_start_next"`
}

// RawConfig is the full TOML shape of releasaurus.toml.
type RawConfig struct {
	BaseBranch                   string         `toml:"base_branch"`
	SeparatePullRequests         bool           `toml:"separate_pull_requests"`
	AutoStartNext                bool           `toml:"auto_start_next"`
	FirstReleaseSearchDepth      int            `toml:"first_release_search_depth"`
	BreakingAlwaysIncrementMajor bool           `toml:"breaking_always_increment_major"`
	FeaturesAlwaysIncrementMinor bool           `toml:"features_always_increment_minor"`
	CustomMajorIncrementRegex    string         `toml:"custom_major_increment_regex"`
	CustomMinorIncrementRegex    string         `toml:"custom_minor_increment_regex"`
	Prerelease                   *RawPrerelease `toml:"prerelease"`
	Changelog                    RawChangelog   `toml:"changelog"`
	Packages                     []RawPackage   `toml:"package"`
}

// Parse decodes releasaurus.toml content into a RawConfig. Absence of the
// file (handled by the caller via Forge.GetFileContent returning nil)
// yields zero-value defaults, per spec.md §4.1.
func Parse(data []byte) (*RawConfig, error) {
	var cfg RawConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &types.InvalidConfigError{Reason: "malformed TOML", Cause: err}
	}
	return &cfg, nil
}

// GlobalOverrides carries top-level CLI flag overrides (spec.md §6's
// `--base-branch`, `--prerelease-suffix`, etc).
type GlobalOverrides struct {
	BaseBranch         string
	PrereleaseSuffix   string
	PrereleaseStrategy string
}

// PackageOverrides carries per-package CLI flag overrides (spec.md §6's
// `--<pkg-name>-prerelease-suffix`).
type PackageOverrides struct {
	PrereleaseSuffix   string
	PrereleaseStrategy string
}

// ResolveInput carries every input the resolver merges.
type ResolveInput struct {
	Raw           *RawConfig
	Global        GlobalOverrides
	PerPackage    map[string]PackageOverrides // keyed by resolved package name
	RepoName      string
	DefaultBranch string
}

// Resolved is the fully-resolved output of a config resolve: the package
// list plus the changelog policy shared across all packages.
type Resolved struct {
	BaseBranch           string
	SeparatePullRequests bool
	AutoStartNext        bool
	SearchDepth          int
	Changelog            ChangelogPolicy
	Packages             []*types.Package
}

// ChangelogPolicy is the resolved form of RawChangelog, with SkipShas
// validated and Reword parsed into a sha-prefix -> message map.
type ChangelogPolicy struct {
	Body               string
	SkipCI             bool
	SkipChore          bool
	SkipMiscellaneous  bool
	SkipMergeCommits   bool
	SkipReleaseCommits *regexp.Regexp
	SkipSHAs           []string
	IncludeAuthor      bool
	Reword             map[string]string
}

// Resolve implements spec.md §4.6's merge rules, producing a fully
// validated, read-only package list.
func Resolve(in ResolveInput) (*Resolved, error) {
	raw := in.Raw
	if raw == nil {
		raw = &RawConfig{}
	}

	baseBranch := in.Global.BaseBranch
	if baseBranch == "" {
		baseBranch = raw.BaseBranch
	}
	if baseBranch == "" {
		baseBranch = in.DefaultBranch
	}

	changelog, err := resolveChangelogPolicy(raw.Changelog)
	if err != nil {
		return nil, err
	}

	depth := raw.FirstReleaseSearchDepth
	if depth <= 0 {
		depth = 400
	}

	out := &Resolved{
		BaseBranch:           baseBranch,
		SeparatePullRequests: raw.SeparatePullRequests,
		AutoStartNext:        raw.AutoStartNext,
		SearchDepth:          depth,
		Changelog:            changelog,
	}

	packages := raw.Packages
	if len(packages) == 0 {
		packages = []RawPackage{{WorkspaceRoot: ".", Path: "."}}
	}

	seen := map[string]bool{}
	for _, rp := range packages {
		pkg, err := resolvePackage(rp, raw, in)
		if err != nil {
			return nil, err
		}
		if seen[pkg.Name] {
			return nil, &types.InvalidConfigError{Reason: fmt.Sprintf("duplicate package name %q", pkg.Name)}
		}
		seen[pkg.Name] = true
		out.Packages = append(out.Packages, pkg)
	}
	return out, nil
}

func resolveChangelogPolicy(raw RawChangelog) (ChangelogPolicy, error) {
	policy := ChangelogPolicy{
		Body:              raw.Body,
		SkipCI:            raw.SkipCI,
		SkipChore:         raw.SkipChore,
		SkipMiscellaneous: raw.SkipMiscellaneous,
		SkipMergeCommits:  raw.SkipMergeCommits,
		IncludeAuthor:     raw.IncludeAuthor,
		Reword:            map[string]string{},
	}
	for _, sha := range raw.SkipSHAs {
		if len(sha) < 7 {
			return policy, &types.InvalidConfigError{Reason: fmt.Sprintf("skip_shas entry %q shorter than 7 characters", sha)}
		}
		policy.SkipSHAs = append(policy.SkipSHAs, sha)
	}
	for _, rw := range raw.Reword {
		if len(rw.SHA) < 7 {
			return policy, &types.InvalidConfigError{Reason: fmt.Sprintf("reword sha %q shorter than 7 characters", rw.SHA)}
		}
		policy.Reword[rw.SHA] = rw.Message
	}
	if raw.SkipReleaseCommits {
		// Matches the release-PR commit titles this system itself produces;
		// see internal/prbody and internal/release.
		policy.SkipReleaseCommits = regexp.MustCompile(`^chore\([^)]*\): release`)
	}
	return policy, nil
}

func resolvePackage(rp RawPackage, raw *RawConfig, in ResolveInput) (*types.Package, error) {
	workspaceRoot := rp.WorkspaceRoot
	if workspaceRoot == "" {
		workspaceRoot = "."
	}
	path := rp.Path
	if path == "" {
		path = "."
	}

	name := rp.Name
	if name == "" {
		name = deriveName(workspaceRoot, path, in.RepoName)
	}

	tagPrefix := rp.TagPrefix
	if tagPrefix == "" {
		if path != "." && path != "" {
			tagPrefix = name + "-v"
		} else {
			tagPrefix = "v"
		}
	}

	overrides := in.PerPackage[name]

	prerelease, err := resolvePrerelease(overrides, in.Global, rp.Prerelease, raw.Prerelease)
	if err != nil {
		return nil, err
	}

	customMajor := rp.CustomMajorIncrementRegex
	if customMajor == "" {
		customMajor = raw.CustomMajorIncrementRegex
	}
	customMinor := rp.CustomMinorIncrementRegex
	if customMinor == "" {
		customMinor = raw.CustomMinorIncrementRegex
	}
	if customMajor != "" {
		if _, err := regexp.Compile(customMajor); err != nil {
			return nil, &types.InvalidConfigError{Reason: "custom_major_increment_regex does not compile", Cause: err}
		}
	}
	if customMinor != "" {
		if _, err := regexp.Compile(customMinor); err != nil {
			return nil, &types.InvalidConfigError{Reason: "custom_minor_increment_regex does not compile", Cause: err}
		}
	}

	breakingMajor := raw.BreakingAlwaysIncrementMajor
	if rp.BreakingAlwaysIncrementMajor != nil {
		breakingMajor = *rp.BreakingAlwaysIncrementMajor
	}
	featuresMinor := raw.FeaturesAlwaysIncrementMinor
	if rp.FeaturesAlwaysIncrementMinor != nil {
		featuresMinor = *rp.FeaturesAlwaysIncrementMinor
	}

	compiled, err := compileManifests(rp.AdditionalManifestFiles)
	if err != nil {
		return nil, err
	}

	fullPath := joinPath(workspaceRoot, path)
	var normalizedAdditional []string
	for _, p := range rp.AdditionalPaths {
		normalizedAdditional = append(normalizedAdditional, normalizePath(p))
	}

	return &types.Package{
		Name:                     name,
		WorkspaceRoot:            workspaceRoot,
		Path:                     path,
		ReleaseType:              strings.ToLower(rp.ReleaseType),
		TagPrefix:                tagPrefix,
		Prerelease:               prerelease,
		AdditionalPaths:          rp.AdditionalPaths,
		AdditionalManifestFiles:  compiled,
		BreakingAlwaysMajor:      breakingMajor,
		FeaturesAlwaysMinor:      featuresMinor,
		CustomMajorRegex:         customMajor,
		CustomMinorRegex:         customMinor,
		AutoStartNext:            rp.AutoStartNext || raw.AutoStartNext,
		NormalizedFullPath:       normalizePath(fullPath),
		NormalizedAdditionalPath: normalizedAdditional,
	}, nil
}

func resolvePrerelease(pkgCLI PackageOverrides, globalCLI GlobalOverrides, pkgCfg, globalCfg *RawPrerelease) (*types.PrereleaseConfig, error) {
	suffix := ""
	strategy := ""
	switch {
	case pkgCLI.PrereleaseSuffix != "":
		suffix, strategy = pkgCLI.PrereleaseSuffix, pkgCLI.PrereleaseStrategy
	case globalCLI.PrereleaseSuffix != "":
		suffix, strategy = globalCLI.PrereleaseSuffix, globalCLI.PrereleaseStrategy
	case pkgCfg != nil && pkgCfg.Suffix != "":
		suffix, strategy = pkgCfg.Suffix, pkgCfg.Strategy
	case globalCfg != nil && globalCfg.Suffix != "":
		suffix, strategy = globalCfg.Suffix, globalCfg.Strategy
	}
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return nil, nil
	}
	kind := types.PrereleaseVersioned
	if strings.EqualFold(strategy, "static") {
		kind = types.PrereleaseStatic
	}
	return &types.PrereleaseConfig{Suffix: suffix, Strategy: kind}, nil
}

func compileManifests(raws []RawManifestFile) ([]types.CompiledManifest, error) {
	var out []types.CompiledManifest
	for _, r := range raws {
		if r.YAMLPath != "" {
			out = append(out, types.CompiledManifest{Path: r.Path, YAMLPath: r.YAMLPath})
			continue
		}
		pattern := r.VersionRegex
		if pattern == "" {
			pattern = defaultGenericVersionRegex
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &types.InvalidConfigError{Reason: fmt.Sprintf("additional manifest %q regex does not compile", r.Path), Cause: err}
		}
		if !hasNamedGroup(re, "version") {
			return nil, &types.InvalidConfigError{Reason: fmt.Sprintf("additional manifest %q regex has no named \"version\" capture group", r.Path)}
		}
		out = append(out, types.CompiledManifest{Path: r.Path, VersionRegex: pattern})
	}
	return out, nil
}

func hasNamedGroup(re *regexp.Regexp, name string) bool {
	for _, n := range re.SubexpNames() {
		if n == name {
			return true
		}
	}
	return false
}

// deriveName implements spec.md §4.6's package-name rule: explicit config
// wins (handled by the caller), else the last path component of
// workspace_root/path, else the repo name.
func deriveName(workspaceRoot, path, repoName string) string {
	joined := joinPath(workspaceRoot, path)
	base := lastPathComponent(joined)
	if base == "" || base == "." {
		return repoName
	}
	return base
}

func joinPath(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" && p != "." {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return "."
	}
	return strings.Join(nonEmpty, "/")
}

func lastPathComponent(p string) string {
	p = strings.TrimRight(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx == -1 {
		return p
	}
	return p[idx+1:]
}

// normalizePath implements the normalize_path property from spec.md §8:
// forward slashes only, no "./" subsequence, idempotent.
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.Contains(p, "./") {
		p = strings.ReplaceAll(p, "./", "")
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
