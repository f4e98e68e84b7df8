// Package openapi loads the OpenAPI document describing the reference-data
// and prediction endpoints. Field labels, enumerated values and the aliases
// used by the Turkish backend are read from x-ototahmin-* extensions on the
// request schema so the form, the prediction client and the contract stay in
// one place. kin-openapi types do not leak out of this package.
package openapi
