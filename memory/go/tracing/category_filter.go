// Package tracing builds the Chrome trace configuration used by the memory
// benchmarks: which trace categories are recorded and when memory dumps are
// requested.
package tracing

import (
	"sort"
	"strings"

	"go.skia.org/infra/go/skerr"
	"go.skia.org/infra/go/util"
)

const (
	// ExcludeAll is the glob that turns off every category that is not
	// explicitly included afterwards.
	ExcludeAll = "-*"

	disabledByDefaultPrefix = "disabled-by-default-"
)

// Well known categories.
const (
	BlinkConsole      = "blink.console"
	WebkitConsole     = "webkit.console"
	RendererScheduler = "renderer.scheduler"
	V8                = "v8"
	MemoryInfra       = disabledByDefaultPrefix + "memory-infra"
)

// CategoryFilter is the parsed form of a Chrome trace category filter
// string, e.g. "-*,blink.console,disabled-by-default-memory-infra".
type CategoryFilter struct {
	included          util.StringSet
	excluded          util.StringSet
	disabledByDefault util.StringSet
}

// NewCategoryFilter parses filterString. An empty string yields an empty
// filter, which Chrome treats as the default category set.
func NewCategoryFilter(filterString string) (*CategoryFilter, error) {
	f := &CategoryFilter{
		included:          util.StringSet{},
		excluded:          util.StringSet{},
		disabledByDefault: util.StringSet{},
	}
	for _, token := range strings.Split(filterString, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		var err error
		if strings.HasPrefix(token, "-") {
			err = f.AddExcludedCategory(token[1:])
		} else {
			err = f.AddIncludedCategory(token)
		}
		if err != nil {
			return nil, skerr.Wrapf(err, "parsing category filter %q", filterString)
		}
	}
	return f, nil
}

// MustNewCategoryFilter is like NewCategoryFilter but panics on error. Use
// it only with literal filter strings.
func MustNewCategoryFilter(filterString string) *CategoryFilter {
	f, err := NewCategoryFilter(filterString)
	if err != nil {
		panic(err)
	}
	return f
}

// AddIncludedCategory enables category. Categories with the
// "disabled-by-default-" prefix are tracked separately since Chrome only
// records them when named explicitly.
func (f *CategoryFilter) AddIncludedCategory(category string) error {
	if category == "" {
		return skerr.Fmt("empty category")
	}
	if f.excluded[category] {
		return skerr.Fmt("category %q is already excluded", category)
	}
	if strings.HasPrefix(category, disabledByDefaultPrefix) {
		f.disabledByDefault[category] = true
	} else {
		f.included[category] = true
	}
	return nil
}

// AddExcludedCategory disables category.
func (f *CategoryFilter) AddExcludedCategory(category string) error {
	if category == "" {
		return skerr.Fmt("empty category")
	}
	if f.included[category] || f.disabledByDefault[category] {
		return skerr.Fmt("category %q is already included", category)
	}
	f.excluded[category] = true
	return nil
}

// Included returns the sorted enabled categories, not counting the
// disabled-by-default ones.
func (f *CategoryFilter) Included() []string {
	return sortedKeys(f.included)
}

// Excluded returns the sorted excluded categories, without the "-" prefix.
func (f *CategoryFilter) Excluded() []string {
	return sortedKeys(f.excluded)
}

// DisabledByDefault returns the sorted disabled-by-default categories.
func (f *CategoryFilter) DisabledByDefault() []string {
	return sortedKeys(f.disabledByDefault)
}

// FilterString returns a canonical filter string: exclusions first, then
// the sorted included categories, then the disabled-by-default ones. Two
// filters with the same categories always produce the same string.
func (f *CategoryFilter) FilterString() string {
	parts := []string{}
	for _, c := range f.Excluded() {
		parts = append(parts, "-"+c)
	}
	parts = append(parts, f.Included()...)
	parts = append(parts, f.DisabledByDefault()...)
	return strings.Join(parts, ",")
}

// String implements fmt.Stringer.
func (f *CategoryFilter) String() string {
	return f.FilterString()
}

// IsSubset reports whether every category f enables is also enabled by
// other, and every category other excludes is also excluded by f.
func (f *CategoryFilter) IsSubset(other *CategoryFilter) bool {
	for c := range f.included {
		if !other.included[c] {
			return false
		}
	}
	for c := range f.disabledByDefault {
		if !other.disabledByDefault[c] {
			return false
		}
	}
	for c := range other.excluded {
		if !f.excluded[c] {
			return false
		}
	}
	return true
}

// enabledCategories returns the list Chrome expects in
// "included_categories".
func (f *CategoryFilter) enabledCategories() []string {
	ret := f.Included()
	ret = append(ret, f.DisabledByDefault()...)
	return ret
}

func sortedKeys(s util.StringSet) []string {
	ret := s.Keys()
	sort.Strings(ret)
	return ret
}
