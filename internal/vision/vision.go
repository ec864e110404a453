// Package vision turns item photos into searchable text descriptions.
package vision

import "context"

// Describer produces a short textual description of an item photo. The
// result feeds the matching engine, so it should name visible attributes
// (kind, colour, brand, distinctive marks) rather than prose.
type Describer interface {
	Describe(ctx context.Context, image []byte, mime string) (string, error)
}

// Disabled is the no-op describer used when no vision backend is configured.
// Items then match on user-written text alone.
type Disabled struct{}

func (Disabled) Describe(context.Context, []byte, string) (string, error) {
	return "", nil
}
