package openapi

import _ "embed"

//go:embed contract.yaml
var embeddedContract []byte

// Raw returns a copy of the embedded contract document.
func Raw() []byte {
	return append([]byte(nil), embeddedContract...)
}
