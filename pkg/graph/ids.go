package graph

import "github.com/google/uuid"

// IDGenerator produces candidate identifiers for nodes and connections.
// The graph rejects candidates it has already issued, so generators only need to be
// unlikely to repeat, not guaranteed unique.
type IDGenerator interface {
	NewID(prefix string) string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func(prefix string) string

func (f IDGeneratorFunc) NewID(prefix string) string {
	return f(prefix)
}

type uuidGenerator struct{}

func (uuidGenerator) NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
