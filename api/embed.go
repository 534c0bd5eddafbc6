// Package api holds the OpenAPI document served routes are validated against.
package api

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
