package signature

import (
	"github.com/invopop/jsonschema"
)

// JSONSchema returns the schema of a signature bundle file.
func JSONSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := r.Reflect(&Bundle{})
	schema.Description = "dexsig signature bundle definition file"
	return schema
}

func (Pattern) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "null"},
			{
				Type: "array",
				Items: &jsonschema.Schema{
					OneOf: []*jsonschema.Schema{
						{Type: "string", Description: "opcode mnemonic, or * / ? for any opcode"},
						{Type: "null"},
					},
				},
			},
		},
	}
}
