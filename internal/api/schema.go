package api

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
)

// createBundleSchema is create_bundle's input schema (spec §6). RepoInput
// carries no json tags, so its fields validate under their exported Go
// names exactly as gojsonschema.NewGoLoader marshals them.
const createBundleSchema = `{
	"type": "object",
	"required": ["repos"],
	"properties": {
		"repos": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["Kind"],
				"properties": {
					"Kind": {"type": "string", "enum": ["github", "local", "web"]},
					"Owner": {"type": "string"},
					"Repo": {"type": "string"},
					"Ref": {"type": "string"},
					"RepoID": {"type": "string"},
					"AbsolutePath": {"type": "string"},
					"URL": {"type": "string"},
					"Config": {"type": ["object", "null"]}
				}
			}
		},
		"libraries": {"type": ["array", "null"], "items": {"type": "string"}},
		"topics": {"type": ["array", "null"], "items": {"type": "string"}},
		"ifExists": {"type": "string", "enum": ["", "error", "returnExisting", "updateExisting", "createNew"]},
		"type": {"type": "string", "enum": ["", "repo", "document"]},
		"displayNameHint": {"type": "string"}
	}
}`

// validateAgainstSchema validates value against schemaJSON, grounded on
// codefang's uast validate command's gojsonschema.Validate/NewGoLoader
// usage. Returns a BundleValidationError listing every field/description
// pair on failure.
func validateAgainstSchema(schemaJSON string, value any) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaJSON)
	docLoader := gojsonschema.NewGoLoader(value)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return bundleerrors.ConfigError("schema validation error", err)
	}

	if result.Valid() {
		return nil
	}

	missing := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		missing = append(missing, fmt.Sprintf("%s: %s", verr.Field(), verr.Description()))
	}

	return bundleerrors.BundleValidationError("", missing)
}
