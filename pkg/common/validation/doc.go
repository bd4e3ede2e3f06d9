// Package validation provides common validation utilities for configuration
// parameters across boundq.
//
// The helpers return *errors.ValidationError values so that constructors and
// configuration loaders report rejected input with the same message shape.
package validation
