// Package openapi describes snapshots as OpenAPI 3 documents. The snapshot
// is published as the request body of a single operation; named record types
// become components.
package openapi

import (
	"reflect"

	immutable "github.com/goliatone/go-immutable"
	"github.com/goliatone/go-immutable/tree"
)

type generator struct {
	config generatorConfig
}

// NewGenerator constructs an OpenAPI schema generator. It is safe for
// concurrent use.
func NewGenerator(opts ...GeneratorOption) immutable.SchemaGenerator {
	cfg := defaultGeneratorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return generator{config: cfg}
}

// Option wires the OpenAPI generator into a snapshot.
func Option(opts ...GeneratorOption) immutable.Option {
	return immutable.WithSchemaGenerator(NewGenerator(opts...))
}

func (g generator) Generate(schema reflect.Type, node *tree.Node) (immutable.SchemaDocument, error) {
	components := newComponentRegistry()
	builder := &schemaBuilder{components: components}
	root, err := builder.buildRoot(schema, node, g.config.rootComponent)
	if err != nil {
		return immutable.SchemaDocument{}, err
	}
	document, err := newDocumentBuilder(g.config, components, root).build()
	if err != nil {
		return immutable.SchemaDocument{}, err
	}
	descriptors, err := immutable.DefaultSchemaGenerator().Generate(schema, node)
	if err != nil {
		return immutable.SchemaDocument{}, err
	}
	return immutable.SchemaDocument{
		Format:   immutable.SchemaFormatOpenAPI,
		Document: document,
		Fields:   descriptors.Fields,
	}, nil
}
