// Package normalisers provides implementations of the Normaliser interface
// for various document formats. Each normaliser knows how to extract plain
// text from the files with a given set of extensions.
//
// Normalisers are registered with the Registry at startup. Files with an
// unknown extension are decoded as plain text.
package normalisers
