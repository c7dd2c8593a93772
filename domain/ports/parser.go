package ports

import "github.com/gal-dev/galrt/domain/entities"

// ResourceParser parses a resource layer file into a VarMap.
type ResourceParser interface {
	Parse(data []byte) (entities.VarMap, error)
}
