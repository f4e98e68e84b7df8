// Package cascade implements the dependent brand → series → model selection
// logic behind the vehicle form.
//
// Apply is a pure transition function over Snapshot values: selecting a brand
// recomputes the series options and clears series and model, selecting a
// series recomputes the model options and clears the model, and every other
// field is stored as-is. Machine wraps Apply with a mutex, observers and a
// load-generation guard so overlapping dataset fetches cannot overwrite a
// newer result with an older one.
package cascade
