// Package transform turns a raw headline table into a clean, validated one.
//
// Cleaning runs as a fixed sequence of steps:
//
//  1. NormalizeColumnNames
//  2. CoerceTypes
//  3. HandleMissing
//  4. RemoveDuplicates
//  5. ValidateDates
//  6. NormalizeText
//  7. DeriveFeatures
//
// Every step is a StepFunc. Steps never mutate their input and applying a
// step twice gives the same table as applying it once.
//
// Missing values are handled in two tiers. HandleMissing fills headline and
// label nulls, while rows whose date could not be parsed survive until
// ValidateDates drops them.
package transform
