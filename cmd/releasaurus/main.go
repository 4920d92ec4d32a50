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

// Command releasaurus drives the two-phase release workflow against a
// single configured forge: release-pr opens or refreshes pending release
// pull requests, release tags and publishes the ones that have been merged.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/releasaurus/releasaurus/internal/cli"
	"github.com/releasaurus/releasaurus/internal/config"
	"github.com/releasaurus/releasaurus/internal/forge"
	"github.com/releasaurus/releasaurus/internal/release"
)

var (
	flagDebug  bool
	flagDryRun bool

	flagGitHubRepo  string
	flagGitHubToken string
	flagGitLabRepo  string
	flagGitLabToken string
	flagGiteaRepo   string
	flagGiteaToken  string
	flagLocalRepo   string

	flagBaseBranch         string
	flagPrereleaseSuffix   string
	flagPrereleaseStrategy string

	flagPkgPrereleaseSuffix   = kvFlag{}
	flagPkgPrereleaseStrategy = kvFlag{}
)

// kvFlag accumulates repeated "name=value" occurrences of a flag into a
// map. Per-package overrides (spec.md §6's "--<pkg-name>-prerelease-suffix")
// can't be registered as literal dynamically-named flags before the config
// file naming those packages has even been read, so they're passed this way
// instead and matched against resolved package names at config-resolve time.
type kvFlag map[string]string

func (f kvFlag) String() string { return "" }

func (f kvFlag) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	f[name] = value
	return nil
}

func addCommonFlags(fs *flag.FlagSet) {
	fs.BoolVar(&flagDebug, "debug", false, "enable debug logging")
	fs.BoolVar(&flagDryRun, "dry-run", false, "log mutations instead of performing them")

	fs.StringVar(&flagGitHubRepo, "github-repo", "", "GitHub repository URL, e.g. https://github.com/owner/repo")
	fs.StringVar(&flagGitHubToken, "github-token", "", "GitHub access token (defaults to $GITHUB_TOKEN)")
	fs.StringVar(&flagGitLabRepo, "gitlab-repo", "", "GitLab repository URL")
	fs.StringVar(&flagGitLabToken, "gitlab-token", "", "GitLab access token (defaults to $GITLAB_TOKEN)")
	fs.StringVar(&flagGiteaRepo, "gitea-repo", "", "Gitea repository URL")
	fs.StringVar(&flagGiteaToken, "gitea-token", "", "Gitea access token (defaults to $GITEA_TOKEN)")
	fs.StringVar(&flagLocalRepo, "local-repo", "", "path to a local git repository, for offline dry runs")

	fs.StringVar(&flagBaseBranch, "base-branch", "", "branch releases are cut from (defaults to the repository's default branch)")
	fs.StringVar(&flagPrereleaseSuffix, "prerelease-suffix", "", "global prerelease suffix, e.g. rc")
	fs.StringVar(&flagPrereleaseStrategy, "prerelease-strategy", "", "versioned or static")

	fs.Var(flagPkgPrereleaseSuffix, "pkg-prerelease-suffix", "per-package prerelease suffix override, name=suffix (repeatable)")
	fs.Var(flagPkgPrereleaseStrategy, "pkg-prerelease-strategy", "per-package prerelease strategy override, name=versioned|static (repeatable)")
}

func setupLogging() {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildForge constructs the single configured Forge implementation from
// whichever repository flag was set, wrapping it in the dry-run decorator
// when requested.
func buildForge(ctx context.Context) (forge.Forge, error) {
	var f forge.Forge
	switch {
	case flagGitHubRepo != "":
		owner, repo, err := forge.ParseGitHubURL(flagGitHubRepo)
		if err != nil {
			return nil, err
		}
		token := flagGitHubToken
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		f = forge.NewGitHub(token, owner, repo, http.DefaultClient)
	case flagGitLabRepo != "":
		apiBaseURL, projectPath, err := forge.ParseGitLabURL(flagGitLabRepo)
		if err != nil {
			return nil, err
		}
		token := flagGitLabToken
		if token == "" {
			token = os.Getenv("GITLAB_TOKEN")
		}
		f = forge.NewGitLab(http.DefaultClient, apiBaseURL, token, projectPath)
	case flagGiteaRepo != "":
		apiBaseURL, owner, repo, err := forge.ParseGiteaURL(flagGiteaRepo)
		if err != nil {
			return nil, err
		}
		token := flagGiteaToken
		if token == "" {
			token = os.Getenv("GITEA_TOKEN")
		}
		f = forge.NewGitea(http.DefaultClient, apiBaseURL, token, owner, repo)
	case flagLocalRepo != "":
		local, err := forge.OpenLocal(flagLocalRepo)
		if err != nil {
			return nil, err
		}
		f = local
	default:
		return nil, errors.New("no repository configured: pass one of --github-repo, --gitlab-repo, --gitea-repo, --local-repo")
	}

	if flagDryRun {
		f = forge.NewDryRun(f)
	}
	return f, nil
}

// loadResolved reads releasaurus.toml from the repository (a missing file
// is not an error, per spec.md §4.1) and merges it with every CLI override
// into a fully-resolved package list.
func loadResolved(ctx context.Context, f forge.Forge) (*config.Resolved, error) {
	repoName, err := f.RepoName(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving repo name: %w", err)
	}
	defaultBranch, err := f.DefaultBranch(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving default branch: %w", err)
	}

	branch := flagBaseBranch
	if branch == "" {
		branch = defaultBranch
	}
	content, err := f.GetFileContent(ctx, forge.GetFileRequest{Branch: branch, Path: "releasaurus.toml"})
	if err != nil {
		return nil, fmt.Errorf("reading releasaurus.toml: %w", err)
	}

	var raw *config.RawConfig
	if content != nil {
		raw, err = config.Parse([]byte(*content))
		if err != nil {
			return nil, err
		}
	}

	perPackage := map[string]config.PackageOverrides{}
	for name, suffix := range flagPkgPrereleaseSuffix {
		o := perPackage[name]
		o.PrereleaseSuffix = suffix
		perPackage[name] = o
	}
	for name, strategy := range flagPkgPrereleaseStrategy {
		o := perPackage[name]
		o.PrereleaseStrategy = strategy
		perPackage[name] = o
	}

	return config.Resolve(config.ResolveInput{
		Raw: raw,
		Global: config.GlobalOverrides{
			BaseBranch:         flagBaseBranch,
			PrereleaseSuffix:   flagPrereleaseSuffix,
			PrereleaseStrategy: flagPrereleaseStrategy,
		},
		PerPackage:    perPackage,
		RepoName:      repoName,
		DefaultBranch: defaultBranch,
	})
}

func runReleasePR(ctx context.Context, cmd *cli.Command) error {
	setupLogging()
	f, err := buildForge(ctx)
	if err != nil {
		return err
	}
	resolved, err := loadResolved(ctx, f)
	if err != nil {
		return err
	}
	ran, err := release.New(f).ReleasePR(ctx, resolved)
	if err != nil {
		return err
	}
	if !ran {
		slog.Info("no releasable changes found")
	}
	return nil
}

func runVersion(ctx context.Context, cmd *cli.Command) error {
	fmt.Println(cli.Version())
	return nil
}

func runRelease(ctx context.Context, cmd *cli.Command) error {
	setupLogging()
	f, err := buildForge(ctx)
	if err != nil {
		return err
	}
	resolved, err := loadResolved(ctx, f)
	if err != nil {
		return err
	}
	ran, err := release.New(f).Release(ctx, resolved)
	if err != nil {
		return err
	}
	if !ran {
		slog.Info("no merged release pull requests found")
	}
	return nil
}

func newRootCommand() *cli.Command {
	releasePR := &cli.Command{
		Short:     "release-pr opens or refreshes pending release pull requests",
		UsageLine: "releasaurus release-pr [flags]",
		Long:      "release-pr computes each configured package's next version and changelog, then opens or refreshes a pull request carrying those changes, labeled pending.",
		Action:    runReleasePR,
	}
	releasePR.Init()
	addCommonFlags(releasePR.Flags)

	rel := &cli.Command{
		Short:     "release tags and publishes merged release pull requests",
		UsageLine: "releasaurus release [flags]",
		Long:      "release finds merged release pull requests, tags their packages, publishes forge releases, and relabels the pull request tagged.",
		Action:    runRelease,
	}
	rel.Init()
	addCommonFlags(rel.Flags)

	ver := &cli.Command{
		Short:     "version prints the version information",
		UsageLine: "releasaurus version",
		Long:      "version prints version information for the releasaurus binary.",
		Action:    runVersion,
	}
	ver.Init()

	root := &cli.Command{
		Short:     "releasaurus automates semantic-version release pull requests and tags",
		UsageLine: "releasaurus <command> [flags]",
		Long:      "releasaurus drives the two-phase release workflow: release-pr opens a pull request carrying the next version and changelog, release tags and publishes it once merged.",
		Commands:  []*cli.Command{releasePR, rel, ver},
	}
	root.Init()
	return root
}

func main() {
	root := newRootCommand()
	if err := root.Run(context.Background(), os.Args[1:]); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
