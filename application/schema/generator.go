// Package schema generates JSON schemas for the documents the runtime reads.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/gal-dev/galrt/application/config"
	"github.com/gal-dev/galrt/domain/entities"
)

// Document kinds registered by RegisterDocuments.
const (
	KindConfig   = "config"
	KindSettings = "settings"
)

// GenerateSchema reflects v into a JSON schema (draft 2020-12). Property
// names come from the yaml tags, matching the files the runtime parses.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		FieldNameTag:   "yaml",
	}
	s := reflector.Reflect(v)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// RegisterDocuments registers the configuration file and settings schemas.
func RegisterDocuments(r *Registry) error {
	if err := r.Register(KindConfig, config.Config{}); err != nil {
		return err
	}
	return r.Register(KindSettings, entities.Settings{})
}
