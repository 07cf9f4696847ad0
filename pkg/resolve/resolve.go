// Package resolve finds element refs in a snapshot RefMap.
//
// Resolution is a prioritized list of matchers evaluated in order; the first
// matcher that matches any entry wins, and within a matcher the first entry
// in snapshot order wins.
package resolve

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Matcher is a named predicate over an element description.
type Matcher struct {
	Name  string
	Match func(desc string) bool
}

// Find returns the first ref whose description contains every keyword,
// compared case-insensitively.
func Find(refs snapshot.RefMap, keywords ...string) (string, bool) {
	return First(refs, Keywords(keywords...))
}

// First returns the first ref in snapshot order accepted by m.
func First(refs snapshot.RefMap, m Matcher) (string, bool) {
	for _, e := range refs.Entries() {
		if m.Match(e.Desc) {
			return e.Ref, true
		}
	}
	return "", false
}

// Keywords matches descriptions containing all keywords, case-insensitively.
func Keywords(keywords ...string) Matcher {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return Matcher{
		Name: fmt.Sprintf("keywords(%s)", strings.Join(keywords, ", ")),
		Match: func(desc string) bool {
			d := strings.ToLower(desc)
			for _, k := range lowered {
				if !strings.Contains(d, k) {
					return false
				}
			}
			return true
		},
	}
}

// ButtonExcept matches any button whose description contains none of the
// excluded words. It is the usual last resort of a chain.
func ButtonExcept(excluded ...string) Matcher {
	lowered := make([]string, len(excluded))
	for i, k := range excluded {
		lowered[i] = strings.ToLower(k)
	}
	return Matcher{
		Name: fmt.Sprintf("button-except(%s)", strings.Join(excluded, ", ")),
		Match: func(desc string) bool {
			d := strings.ToLower(desc)
			if !strings.Contains(d, "button") {
				return false
			}
			for _, k := range lowered {
				if strings.Contains(d, k) {
					return false
				}
			}
			return true
		},
	}
}

// Chain is an ordered fallback list of matchers.
type Chain []Matcher

// Resolve tries each matcher in order and reports the ref and the name of
// the matcher that found it.
func (c Chain) Resolve(refs snapshot.RefMap) (ref string, matcher string, ok bool) {
	for _, m := range c {
		if ref, ok := First(refs, m); ok {
			return ref, m.Name, true
		}
	}
	return "", "", false
}

// Names lists the matcher names, for diagnostics.
func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, m := range c {
		names[i] = m.Name
	}
	return names
}
