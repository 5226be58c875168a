// Package sanitizer normalizes booking input before validation.
//
// All functions are idempotent: applying them twice gives the same result as
// applying them once. Input that cannot be normalized is returned trimmed but
// otherwise unchanged so that validation can report it.
//
// Normalization includes:
//   - Passenger names: trim and collapse inner whitespace, case preserved
//   - Phone numbers: E.164 format, numbers without a country code are read as Indian
//   - Station codes: trim and upper-case
package sanitizer
