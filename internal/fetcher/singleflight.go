package fetcher

import (
	"golang.org/x/sync/singleflight"
)

// Group deduplicates concurrent fetches of the same flight key. When several
// rules on the same scope declare the same dependency, only one ARM or Graph
// request goes out; the other callers share its result.
type Group struct {
	g singleflight.Group
}

// Do executes fn once per in-flight key. The bool reports whether the result
// was shared with another caller.
func (g *Group) Do(key string, fn func() (any, error)) (any, error, bool) {
	v, err, shared := g.g.Do(key, fn)
	return v, err, shared
}
