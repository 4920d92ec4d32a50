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

// Package java updates pom.xml, build.gradle(.kts), and gradle.properties,
// per spec.md §4.5. pom.xml is rewritten with encoding/xml's streaming
// token decoder rather than a DOM library, since only the project-level
// <version> element (depth 2 under <project>) needs to change and every
// nested dependency <version> must be left untouched.
package java

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

var gradleVersionRegex = regexp.MustCompile(`(?m)^\s*(?:project\.)?version\s*=\s*['"]?(?P<version>[^'"\s]*)['"]?\s*$`)
var gradlePropertiesVersionRegex = regexp.MustCompile(`(?m)^(version\s*=\s*)(?P<version>\S+)\s*$`)

// Updater implements manifest.Updater for Maven/Gradle-based packages.
type Updater struct{}

// New returns a Java manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns pom.xml, build.gradle, build.gradle.kts, and
// gradle.properties for the package.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "pom.xml"), Basename: "pom.xml"},
		{Path: shared.JoinPath(pkgPath, "build.gradle"), Basename: "build.gradle"},
		{Path: shared.JoinPath(pkgPath, "build.gradle.kts"), Basename: "build.gradle.kts"},
		{Path: shared.JoinPath(pkgPath, "gradle.properties"), Basename: "gradle.properties"},
	}
}

// Update rewrites whichever Java build files are present. libs.versions.toml
// is intentionally never a target here, per spec.md §4.5.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	var changes []types.FileChange

	pomPath := shared.JoinPath(pkg.Package.Path, "pom.xml")
	if content, ok := pkg.Files[pomPath]; ok {
		updated, changed, err := updatePomVersion(content, pkg.NextVersion)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", pomPath, err)
		}
		if changed {
			changes = append(changes, types.FileChange{Path: pomPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	for _, name := range []string{"build.gradle", "build.gradle.kts"} {
		p := shared.JoinPath(pkg.Package.Path, name)
		if content, ok := pkg.Files[p]; ok {
			if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, gradleVersionRegex); changed {
				changes = append(changes, types.FileChange{Path: p, Content: updated, Kind: types.FileChangeReplace})
			}
		}
	}

	propsPath := shared.JoinPath(pkg.Package.Path, "gradle.properties")
	if content, ok := pkg.Files[propsPath]; ok {
		if updated, changed := shared.ReplaceNamedVersion(content, pkg.NextVersion, gradlePropertiesVersionRegex); changed {
			changes = append(changes, types.FileChange{Path: propsPath, Content: updated, Kind: types.FileChangeReplace})
		}
	}

	return changes, nil
}

// updatePomVersion walks the XML token stream, rewriting only the
// character data of the <version> element that is a direct child of the
// root <project> element (depth 2), leaving every nested <dependency>'s
// <version> untouched.
func updatePomVersion(content, nextVersion string) (string, bool, error) {
	dec := xml.NewDecoder(bytes.NewReader([]byte(content)))
	var out bytes.Buffer
	enc := xml.NewEncoder(&out)

	depth := 0
	changed := false
	inProjectVersion := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return content, false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			inProjectVersion = depth == 2 && t.Name.Local == "version"
			if err := enc.EncodeToken(t); err != nil {
				return content, false, err
			}
		case xml.EndElement:
			if err := enc.EncodeToken(t); err != nil {
				return content, false, err
			}
			if depth == 2 && t.Name.Local == "version" {
				inProjectVersion = false
			}
			depth--
		case xml.CharData:
			if inProjectVersion {
				if err := enc.EncodeToken(xml.CharData([]byte(nextVersion))); err != nil {
					return content, false, err
				}
				changed = true
				continue
			}
			if err := enc.EncodeToken(t); err != nil {
				return content, false, err
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return content, false, err
			}
		}
	}
	if err := enc.Flush(); err != nil {
		return content, false, err
	}
	if !changed {
		return content, false, nil
	}
	return out.String(), true, nil
}
