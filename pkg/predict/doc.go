// Package predict talks to the price prediction endpoint. Client turns a
// cascade.FormState into the JSON body described by the service contract,
// optionally renaming keys and values for the original Turkish backend, and
// decodes the numeric prediction from the reply. Formatter renders a result
// the way the web form did: locale-grouped digits followed by " TL", or a
// fixed failure message.
package predict
