package swagger

import _ "embed"

// OpenAPI contains the embedded OpenAPI JSON document.
//
//go:embed openapi.json
var OpenAPI []byte
