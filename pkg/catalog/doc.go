// Package catalog holds the vehicle reference dataset (brand → series →
// models) served by the prediction backend, together with the sources and
// loaders used to fetch it.
//
// A Dataset keeps the order in which brands, series and models appear in the
// source document; that order is the display order for every selector. Values
// are immutable once built, so a Dataset can be shared freely between
// goroutines.
package catalog
