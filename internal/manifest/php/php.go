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

// Package php updates composer.json's version field, per spec.md §4.5.
package php

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/releasaurus/releasaurus/internal/manifest/shared"
	"github.com/releasaurus/releasaurus/internal/types"
)

// Updater implements manifest.Updater for Composer-based packages.
type Updater struct{}

// New returns a PHP manifest Updater.
func New() *Updater { return &Updater{} }

// ManifestTargets returns composer.json for the package.
func (u *Updater) ManifestTargets(pkgName, workspaceRoot, pkgPath string) []types.ManifestTarget {
	return []types.ManifestTarget{
		{Path: shared.JoinPath(pkgPath, "composer.json"), Basename: "composer.json"},
	}
}

// Update rewrites composer.json's version field, preserving the rest of
// the document's structure via a decode/re-encode round trip.
func (u *Updater) Update(pkg types.UpdaterPackage, workspacePackages []types.UpdaterPackage) ([]types.FileChange, error) {
	path := shared.JoinPath(pkg.Package.Path, "composer.json")
	content, ok := pkg.Files[path]
	if !ok {
		return nil, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	doc["version"] = pkg.NextVersion

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	return []types.FileChange{{
		Path:    path,
		Content: strings.TrimRight(buf.String(), "\n") + "\n",
		Kind:    types.FileChangeReplace,
	}}, nil
}
