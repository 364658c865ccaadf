package mirror

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// partSuffix marks a transfer in progress next to its final local path.
const partSuffix = ".mirrorpart"

var defaultIgnoreLines = []string{
	"*" + partSuffix,
}

// Filter decides which file ids take part in mirroring. Ignore patterns use
// gitignore syntax; include patterns are doublestar globs and, when present,
// an id must match at least one of them.
type Filter struct {
	include []string
	ignore  *gitignore.GitIgnore
}

func NewFilter(include, ignore []string) (*Filter, error) {
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern %q", pattern)
		}
	}

	lines := make([]string, 0, len(defaultIgnoreLines)+len(ignore))
	lines = append(lines, defaultIgnoreLines...)
	for _, line := range ignore {
		if line != "" {
			lines = append(lines, line)
		}
	}

	return &Filter{
		include: append([]string(nil), include...),
		ignore:  gitignore.CompileIgnoreLines(lines...),
	}, nil
}

// Allows reports whether id is mirrored. A nil Filter allows everything.
func (f *Filter) Allows(id string) bool {
	if f == nil {
		return true
	}
	if f.ignore != nil && f.ignore.MatchesPath(id) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	for _, pattern := range f.include {
		if ok, _ := doublestar.Match(pattern, id); ok {
			return true
		}
	}
	return false
}
