// Package model defines the typed form model consumed by renderers. The
// builder walks the prediction request schema of the service contract and
// produces one Field per form input in display order: brand, series and
// model are cascade fields whose options come from the catalog at runtime,
// the transmission, fuel, body and drivetrain fields are selects whose
// options and labels come from the contract, and the remaining inputs are
// numbers. Labels are resolved per locale (tr or en).
package model
