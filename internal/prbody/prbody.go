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

// Package prbody encodes and decodes the release pull request body format:
// one HTML-comment JSON envelope plus a collapsible <details> block per
// releasable package, per spec.md §4.8.
package prbody

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/releasaurus/releasaurus/internal/types"
)

// metadataRegex scans for the envelope/details pair: an HTML-comment JSON
// envelope followed (after any number of newlines) by a <details> tag.
// Grounded on the teacher's detailsRegex/summaryRegex pair in
// internal/librarian/tag_and_release.go, generalized to the JSON envelope
// spec.md §4.8 specifies instead of the teacher's "<library>: <version>"
// summary line.
var metadataRegex = regexp.MustCompile(`(?s)<!--(.*?)-->\n*<details`)

// envelope is the JSON document embedded in the HTML comment.
type envelope struct {
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	Name  string `json:"name"`
	Tag   string `json:"tag"`
	Notes string `json:"notes"`
}

// Section is one package's fully rendered PR-body section.
type Section struct {
	PackageName string
	Tag         string
	Semver      string
	Notes       string
}

// Encode renders sections into the full PR body: one envelope plus
// details block per section, in order. The details block is opened by
// default only when there is exactly one section, per spec.md §4.8.
func Encode(sections []Section) string {
	openDetails := len(sections) == 1
	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		env := envelope{Metadata: metadata{Name: s.PackageName, Tag: s.Tag, Notes: s.Notes}}
		raw, _ := json.Marshal(env) // envelope/metadata are plain strings; Marshal cannot fail here.
		b.WriteString("<!--")
		b.Write(raw)
		b.WriteString("-->\n")
		if openDetails {
			b.WriteString("<details open>")
		} else {
			b.WriteString("<details>")
		}
		fmt.Fprintf(&b, "<summary>%s</summary>%s</details>", s.Semver, s.Notes)
	}
	return b.String()
}

// Decode scans body for every metadata envelope and returns the one whose
// package name matches pkgName. A missing match is reported via
// MissingMetadataError, per spec.md §4.8's "fatal error" requirement.
func Decode(body, pkgName string) (*Section, error) {
	matches := metadataRegex.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		var env envelope
		if err := json.Unmarshal([]byte(m[1]), &env); err != nil {
			continue
		}
		if env.Metadata.Name != pkgName {
			continue
		}
		return &Section{
			PackageName: env.Metadata.Name,
			Tag:         env.Metadata.Tag,
			Notes:       env.Metadata.Notes,
		}, nil
	}
	return nil, &types.MissingMetadataError{Package: pkgName}
}

// DecodeAll returns every envelope found in body, regardless of package
// name, used by phase two to process every package in one pull request.
func DecodeAll(body string) []Section {
	var out []Section
	matches := metadataRegex.FindAllStringSubmatch(body, -1)
	for _, m := range matches {
		var env envelope
		if err := json.Unmarshal([]byte(m[1]), &env); err != nil {
			continue
		}
		out = append(out, Section{
			PackageName: env.Metadata.Name,
			Tag:         env.Metadata.Tag,
			Notes:       env.Metadata.Notes,
		})
	}
	return out
}
