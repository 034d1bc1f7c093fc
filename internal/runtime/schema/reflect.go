package schema

import "github.com/invopop/jsonschema"

// Anonymous keeps reflected documents free of a package-derived $id, so they
// register cleanly under whatever URI the caller picks.
var reflector = jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
}

// Reflect derives a JSON schema document from T's struct tags. The result
// marshals to a plain draft schema and can be registered on a Validator via
// RegisterValue, so services can declare message schemas from the payload
// types they already have.
func Reflect[T any]() *jsonschema.Schema {
	var v T
	return reflector.Reflect(v)
}

// RegisterType reflects T into a schema document and registers it on v
// under uri.
func RegisterType[T any](v *Validator, uri string) error {
	return v.RegisterValue(uri, Reflect[T]())
}
