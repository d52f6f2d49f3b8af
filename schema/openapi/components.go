package openapi

import (
	"fmt"
	"reflect"
	"regexp"
)

// componentRegistry names record types published under components.schemas.
// A type keeps the name it was first reserved with.
type componentRegistry struct {
	names     map[reflect.Type]string
	schemas   map[string]*schemaNode
	usedNames map[string]struct{}
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		names:     map[reflect.Type]string{},
		schemas:   map[string]*schemaNode{},
		usedNames: map[string]struct{}{},
	}
}

// reserve returns the reference for rt and whether rt was already reserved.
// A type being described reports true, which ends recursive types.
func (r *componentRegistry) reserve(rt reflect.Type, nameHint string) (string, bool) {
	if name, ok := r.names[rt]; ok {
		return reference(name), true
	}
	name := r.uniqueName(nameHint)
	r.names[rt] = name
	return reference(name), false
}

func (r *componentRegistry) define(rt reflect.Type, node *schemaNode) {
	if name, ok := r.names[rt]; ok {
		r.schemas[name] = node
	}
}

func (r *componentRegistry) componentsMap() map[string]any {
	if len(r.schemas) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.schemas))
	for name, node := range r.schemas {
		out[name] = node.openAPI()
	}
	return out
}

func reference(name string) string {
	return fmt.Sprintf("#/components/schemas/%s", name)
}

func (r *componentRegistry) uniqueName(name string) string {
	safe := sanitizeComponentName(name)
	if safe == "" {
		safe = "Schema"
	}
	if _, exists := r.usedNames[safe]; !exists {
		r.usedNames[safe] = struct{}{}
		return safe
	}
	suffix := 1
	for {
		candidate := fmt.Sprintf("%s%d", safe, suffix)
		if _, exists := r.usedNames[candidate]; !exists {
			r.usedNames[candidate] = struct{}{}
			return candidate
		}
		suffix++
	}
}

var componentNameRegexp = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeComponentName(name string) string {
	name = componentNameRegexp.ReplaceAllString(name, "_")
	name = trimUnderscores(name)
	if name == "" {
		return ""
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "_" + name
	}
	return name
}

func trimUnderscores(input string) string {
	start := 0
	for start < len(input) && input[start] == '_' {
		start++
	}
	end := len(input)
	for end > start && input[end-1] == '_' {
		end--
	}
	return input[start:end]
}
