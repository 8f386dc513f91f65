// Package gpg provides utilities for working with OpenPGP keys used to
// sign RPM packages.
//
// This package supports:
//   - Loading and parsing armored OpenPGP public keys
//   - Keyring management for multiple keys with lookup by key id
//   - Importing key files with per-key failure accounting
//   - Retrieving keys from HKP keyservers by key id
//
// The package is commonly used together with the verify package to check
// signatures on downloaded packages against a set of trusted keys.
package gpg
