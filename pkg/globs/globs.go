// Package globs compiles filesystem glob patterns such as
// "source/scss/**/*.scss" into matchers.
//
// A '*' matches within one path segment and "**" across segments. A "/**/"
// also matches a single "/", so "scss/**/*.scss" matches "scss/app.scss" as
// well as "scss/components/_button.scss".
package globs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

const (
	metaChars = "*?[]{}"
	globstar  = "/**/"

	// Patterns with more "/**/" segments than this skip the zero-depth variants.
	maxGlobstars = 6
)

// Pattern is a compiled glob over slash-separated absolute paths.
type Pattern struct {
	raw      string
	root     string
	literal  bool
	matchers []glob.Glob
}

// HasMeta reports whether s contains glob metacharacters.
func HasMeta(s string) bool {
	return strings.ContainsAny(s, metaChars)
}

// Compile compiles pattern. Relative patterns are matched as given; callers
// normally pass absolute ones.
func Compile(pattern string) (*Pattern, error) {
	slashed := filepath.ToSlash(pattern)
	p := &Pattern{raw: pattern, literal: !HasMeta(slashed)}

	if p.literal {
		p.root = filepath.Dir(pattern)
	} else {
		prefix := slashed[:strings.IndexAny(slashed, metaChars)]
		if i := strings.LastIndex(prefix, "/"); i >= 0 {
			prefix = prefix[:i]
		} else {
			prefix = "."
		}
		if prefix == "" {
			prefix = "/"
		}
		p.root = filepath.FromSlash(prefix)
	}

	variants := zeroDepthVariants(slashed)
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, fmt.Errorf("compiling glob %q: %w", pattern, err)
		}
		p.matchers = append(p.matchers, g)
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return p
}

// zeroDepthVariants returns pattern plus every form of it with some of its
// "/**/" segments collapsed to "/".
func zeroDepthVariants(pattern string) []string {
	if strings.Count(pattern, globstar) > maxGlobstars {
		return []string{pattern}
	}
	seen := map[string]bool{pattern: true}
	variants := []string{pattern}
	for k := 0; k < len(variants); k++ {
		v := variants[k]
		for off := 0; ; {
			i := strings.Index(v[off:], globstar)
			if i < 0 {
				break
			}
			i += off
			collapsed := v[:i] + "/" + v[i+len(globstar):]
			if !seen[collapsed] {
				seen[collapsed] = true
				variants = append(variants, collapsed)
			}
			off = i + 1
		}
	}
	return variants
}

// String returns the pattern as given to Compile.
func (p *Pattern) String() string {
	return p.raw
}

// Root is the deepest directory that contains every possible match.
func (p *Pattern) Root() string {
	return p.root
}

// Literal reports whether the pattern names a single path.
func (p *Pattern) Literal() bool {
	return p.literal
}

// Match reports whether path matches the pattern.
func (p *Pattern) Match(path string) bool {
	slashed := filepath.ToSlash(path)
	if p.literal {
		return filepath.Clean(path) == filepath.Clean(p.raw)
	}
	for _, g := range p.matchers {
		if g.Match(slashed) {
			return true
		}
	}
	return false
}

// Expand returns the regular files matching pattern in lexical order. A
// missing root yields no matches.
func Expand(pattern string) ([]string, error) {
	p, err := Compile(pattern)
	if err != nil {
		return nil, err
	}

	var matches []string
	err = filepath.WalkDir(p.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if p.Match(path) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expanding %q: %w", pattern, err)
	}
	return matches, nil
}
