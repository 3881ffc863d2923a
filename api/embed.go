// Package api carries the OpenAPI contract. The kernel embeds it to
// validate incoming requests against the same document clients read.
package api

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
