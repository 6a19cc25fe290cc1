package classgraph

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMatchCacheSize bounds the number of memoised (pattern, package) results.
const DefaultMatchCacheSize = 8192

// Matcher matches package names against package patterns.
//
// Pattern syntax follows the usual package-identifier conventions:
//
//   - "com.acme"        exactly com.acme
//   - "com.acme.."      com.acme and every sub-package
//   - "..service.."     any package containing a "service" segment
//   - "com.*.api"       one arbitrary segment
//   - "com.[a|b].."     alternatives
//
// Patterns are translated to doublestar globs over slash-separated package
// paths. Results are memoised, and a Matcher is safe for concurrent use.
type Matcher struct {
	cache *lru.Cache[string, bool]
}

// NewMatcher creates a Matcher with a result cache of the given size.
func NewMatcher(cacheSize int) *Matcher {
	if cacheSize <= 0 {
		cacheSize = DefaultMatchCacheSize
	}
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		// Only returned for non-positive sizes, which are excluded above.
		panic(err)
	}
	return &Matcher{cache: cache}
}

// Match reports whether pkg matches pattern.
func (m *Matcher) Match(pattern, pkg string) bool {
	key := pattern + "\x00" + pkg
	if ok, hit := m.cache.Get(key); hit {
		return ok
	}
	ok := matchPattern(pattern, pkg)
	m.cache.Add(key, ok)
	return ok
}

// Len returns the number of memoised results.
func (m *Matcher) Len() int {
	return m.cache.Len()
}

// MatchAny reports whether pkg matches at least one of patterns.
func (m *Matcher) MatchAny(pkg string, patterns []string) bool {
	for _, p := range patterns {
		if m.Match(p, pkg) {
			return true
		}
	}
	return false
}

// ValidatePattern returns an error if pattern cannot be used for matching.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty package pattern")
	}
	if strings.Contains(pattern, "...") {
		return fmt.Errorf("invalid package pattern %q: more than two consecutive dots", pattern)
	}
	if !doublestar.ValidatePattern(toGlob(pattern)) {
		return fmt.Errorf("invalid package pattern %q", pattern)
	}
	return nil
}

func matchPattern(pattern, pkg string) bool {
	glob := toGlob(pattern)
	path := strings.ReplaceAll(pkg, ".", "/")

	if ok, err := doublestar.Match(glob, path); err == nil && ok {
		return true
	}
	// A trailing "**" also covers the package itself.
	if trimmed, cut := strings.CutSuffix(glob, "/**"); cut {
		if ok, err := doublestar.Match(trimmed, path); err == nil && ok {
			return true
		}
	}
	return false
}

// toGlob translates a package pattern into a doublestar glob.
func toGlob(pattern string) string {
	p := strings.TrimSpace(pattern)
	p = strings.NewReplacer("(", "", ")", "").Replace(p)
	p = translateAlternatives(p)

	p = strings.ReplaceAll(p, "..", "\x00")
	p = strings.ReplaceAll(p, ".", "/")
	p = strings.ReplaceAll(p, "\x00", "/**/")
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return "**"
	}
	return p
}

// translateAlternatives rewrites "[a|b]" groups into "{a,b}".
func translateAlternatives(p string) string {
	var b strings.Builder
	inGroup := false
	for _, r := range p {
		switch {
		case r == '[':
			inGroup = true
			b.WriteRune('{')
		case r == ']' && inGroup:
			inGroup = false
			b.WriteRune('}')
		case r == '|' && inGroup:
			b.WriteRune(',')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
