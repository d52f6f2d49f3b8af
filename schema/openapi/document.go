package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type documentBuilder struct {
	config     generatorConfig
	components *componentRegistry
	root       *schemaNode
}

func newDocumentBuilder(config generatorConfig, components *componentRegistry, root *schemaNode) *documentBuilder {
	return &documentBuilder{
		config:     config,
		components: components,
		root:       root,
	}
}

func (b *documentBuilder) build() (map[string]any, error) {
	if b.root == nil {
		return nil, fmt.Errorf("openapi: root schema node cannot be nil")
	}

	document := map[string]any{
		"openapi": b.config.openAPIVersion,
		"info":    b.buildInfo(),
		"paths":   b.buildPaths(),
	}
	if components := b.components.componentsMap(); components != nil {
		document["components"] = map[string]any{
			"schemas": components,
		}
	}

	if err := validateDocument(document); err != nil {
		return nil, err
	}
	return document, nil
}

func (b *documentBuilder) buildInfo() map[string]any {
	info := map[string]any{
		"title":   b.config.info.Title,
		"version": b.config.info.Version,
	}
	if b.config.info.Description != "" {
		info["description"] = b.config.info.Description
	}
	return info
}

// mergePatchContentType is the media type of RFC 7386 merge patches.
const mergePatchContentType = "application/merge-patch+json"

func (b *documentBuilder) buildPaths() map[string]any {
	paths := map[string]any{}
	add := func(operation operationConfig, contentType string, schema map[string]any) {
		method := strings.ToLower(operation.Method)
		if method == "" {
			method = "put"
		}
		item, _ := paths[operation.Path].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[operation.Path] = item
		}
		item[method] = b.buildOperation(operation, method, contentType, schema)
	}

	add(b.config.operation, b.config.contentType, b.root.openAPI())
	if patch := b.config.mergePatch; patch != nil {
		op := *patch
		if op.Path == "" {
			op.Path = b.config.operation.Path
		}
		add(op, mergePatchContentType, withoutRequired(b.root.openAPI()))
	}
	return paths
}

func (b *documentBuilder) buildOperation(config operationConfig, method, contentType string, schema map[string]any) map[string]any {
	responses := make(map[string]any, len(b.config.responses))
	statuses := make([]string, 0, len(b.config.responses))
	for status := range b.config.responses {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		responses[status] = map[string]any{
			"description": b.config.responses[status].Description,
		}
	}

	operation := map[string]any{
		"operationId": operationID(config, method),
		"requestBody": map[string]any{
			"required": true,
			"content": map[string]any{
				contentType: map[string]any{"schema": schema},
			},
		},
		"responses": responses,
	}
	if summary := strings.TrimSpace(config.Summary); summary != "" {
		operation["summary"] = summary
	}
	return operation
}

func operationID(config operationConfig, method string) string {
	if config.OperationID != "" {
		return config.OperationID
	}
	return fmt.Sprintf("%s:%s", method, config.Path)
}

// withoutRequired drops "required" from an inline schema and the inline
// schemas nested in it. Referenced components are left untouched.
func withoutRequired(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for key, value := range schema {
		if key == "required" {
			continue
		}
		switch typed := value.(type) {
		case map[string]any:
			if key == "properties" {
				props := make(map[string]any, len(typed))
				for name, prop := range typed {
					if nested, ok := prop.(map[string]any); ok {
						prop = withoutRequired(nested)
					}
					props[name] = prop
				}
				value = props
			} else {
				value = withoutRequired(typed)
			}
		}
		out[key] = value
	}
	return out
}

func validateDocument(document map[string]any) error {
	if document == nil {
		return fmt.Errorf("openapi: document cannot be nil")
	}
	version, _ := document["openapi"].(string)
	if version == "" {
		return fmt.Errorf("openapi: document missing version string")
	}
	info, _ := document["info"].(map[string]any)
	if info == nil {
		return fmt.Errorf("openapi: document missing info section")
	}
	if title, _ := info["title"].(string); title == "" {
		return fmt.Errorf("openapi: info.title must be set")
	}
	if version, _ := info["version"].(string); version == "" {
		return fmt.Errorf("openapi: info.version must be set")
	}
	paths, _ := document["paths"].(map[string]any)
	if len(paths) == 0 {
		return fmt.Errorf("openapi: document must define at least one path")
	}
	for pathKey, pathValue := range paths {
		if pathKey == "" {
			return fmt.Errorf("openapi: operation path must be set")
		}
		pathItem, _ := pathValue.(map[string]any)
		if len(pathItem) == 0 {
			return fmt.Errorf("openapi: path %q missing operations", pathKey)
		}
		for method, operationValue := range pathItem {
			operation, _ := operationValue.(map[string]any)
			if operation == nil {
				return fmt.Errorf("openapi: operation %s %s invalid payload", method, pathKey)
			}
			if _, ok := operation["requestBody"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing requestBody", method, pathKey)
			}
			if _, ok := operation["responses"].(map[string]any); !ok {
				return fmt.Errorf("openapi: operation %s %s missing responses", method, pathKey)
			}
		}
	}
	return nil
}
