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

import "fmt"

// PrereleaseKind selects how a prerelease identifier advances between
// releases.
type PrereleaseKind int

const (
	// PrereleaseVersioned identifiers (e.g. "alpha", "beta") carry a ".N"
	// counter that increments on every release sharing the identifier.
	PrereleaseVersioned PrereleaseKind = iota
	// PrereleaseStatic identifiers (e.g. "SNAPSHOT", "dev") carry no
	// counter; every release under the same identifier simply re-bumps the
	// stable core underneath it.
	PrereleaseStatic
)

// PrereleaseOptions configures a prerelease Strategy.
type PrereleaseOptions struct {
	Suffix string
	Kind   PrereleaseKind
}

// Strategy computes the next version from the current tag's version (nil
// for a first release) and the highest change level observed among the
// retained commits.
type Strategy interface {
	ComputeNext(current *Version, highestChange ChangeLevel, flags BumpFlags) (Version, error)
}

// StableStrategy is the default: bump the stable core, or graduate a
// prerelease if the current tag carries one.
type StableStrategy struct{}

func (StableStrategy) ComputeNext(current *Version, highestChange ChangeLevel, flags BumpFlags) (Version, error) {
	return DeriveNextStable(highestChange, current, flags), nil
}

// VersionedPrereleaseStrategy implements spec.md §4.3's "Versioned
// prerelease" rules.
type VersionedPrereleaseStrategy struct {
	Suffix string
}

func (s VersionedPrereleaseStrategy) ComputeNext(current *Version, highestChange ChangeLevel, flags BumpFlags) (Version, error) {
	if s.Suffix == "" {
		return Version{}, fmt.Errorf("versioned prerelease strategy requires a non-empty suffix")
	}
	if current == nil {
		v := Version{Major: 0, Minor: 1, Patch: 0}
		return withPrerelease(v, s.Suffix, "1"), nil
	}
	if !current.IsPrerelease() {
		next := bumpStable(*current, highestChange, flags)
		return withPrerelease(next, s.Suffix, "1"), nil
	}
	if current.Prerelease == s.Suffix {
		return incrementPrerelease(*current)
	}
	// Different identifier: graduate, then start a fresh prerelease of the
	// next stable version.
	next := DeriveNextStable(highestChange, current, flags)
	return withPrerelease(next, s.Suffix, "1"), nil
}

func withPrerelease(v Version, suffix, number string) Version {
	v.Prerelease = suffix
	v.PrereleaseSeparator = "."
	v.PrereleaseNumber = number
	return v
}

// StaticPrereleaseStrategy implements spec.md §4.3's "Static prerelease"
// rules (e.g. SNAPSHOT, dev): no counter, re-derived stable core under the
// identifier on every release.
type StaticPrereleaseStrategy struct {
	Suffix string
}

func (s StaticPrereleaseStrategy) ComputeNext(current *Version, highestChange ChangeLevel, flags BumpFlags) (Version, error) {
	if s.Suffix == "" {
		return Version{}, fmt.Errorf("static prerelease strategy requires a non-empty suffix")
	}
	if current == nil {
		v := Version{Major: 0, Minor: 1, Patch: 0}
		return withStaticPrerelease(v, s.Suffix), nil
	}
	if !current.IsPrerelease() {
		next := bumpStable(*current, highestChange, flags)
		return withStaticPrerelease(next, s.Suffix), nil
	}
	// Same or different identifier: graduate to the core, compute the next
	// stable version from that core, then re-append the (possibly new)
	// identifier.
	next := bumpStable(current.Core(), highestChange, flags)
	return withStaticPrerelease(next, s.Suffix), nil
}

func withStaticPrerelease(v Version, suffix string) Version {
	v.Prerelease = suffix
	v.PrereleaseSeparator = ""
	v.PrereleaseNumber = ""
	return v
}

// GraduationStrategy drops any prerelease identifier, keeping the core
// version. NewStrategy never selects it: with no prerelease config it
// returns StableStrategy, which graduates a prerelease tag the same way.
type GraduationStrategy struct{}

func (GraduationStrategy) ComputeNext(current *Version, highestChange ChangeLevel, flags BumpFlags) (Version, error) {
	if current == nil {
		return Version{Major: 0, Minor: 1, Patch: 0}, nil
	}
	if current.IsPrerelease() {
		if highestChange == ChangeNone {
			return current.Core(), nil
		}
		return bumpStable(current.Core(), highestChange, flags), nil
	}
	return bumpStable(*current, highestChange, flags), nil
}

// NewStrategy is the factory spec.md §4.3 describes: absence of a
// PrereleaseOptions yields the stable strategy.
func NewStrategy(opts *PrereleaseOptions) Strategy {
	if opts == nil || opts.Suffix == "" {
		return StableStrategy{}
	}
	switch opts.Kind {
	case PrereleaseStatic:
		return StaticPrereleaseStrategy{Suffix: opts.Suffix}
	default:
		return VersionedPrereleaseStrategy{Suffix: opts.Suffix}
	}
}
