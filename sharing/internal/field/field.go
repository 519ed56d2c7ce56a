// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package field defines the finite field operations used for secret sharing.
package field

// Element is an element in a finite field.
type Element interface {
	// Add returns the sum of the element and `a`.
	Add(a Element) Element
	// Subtract returns the difference of the element and `a`.
	Subtract(a Element) Element
	// Multiply returns the product of the element and `a`.
	Multiply(a Element) Element
	// Inverse returns the multiplicative inverse of the element.
	// Zero has no inverse and yields an error.
	Inverse() (Element, error)
	// Equal reports whether `a` holds the same value.
	Equal(a Element) bool
	// Bytes returns the element in a big endian encoded byte representation.
	Bytes() []byte
}

// GaloisField represents a finite field with characteristic 2.
type GaloisField interface {
	// CreateElement creates a new field element from i. Values outside
	// [0, Order()) are rejected.
	CreateElement(i int) (Element, error)
	// NewRandom draws a uniformly distributed element from a cryptographically
	// secure source.
	NewRandom() (Element, error)
	// ReadElement reads the element stored at offset i of b.
	ReadElement(b []byte, i int) (Element, error)
	// EncodeElements encodes elements into a byte slice of length secLen.
	// The output can be passed to DecodeElements to recreate the elements.
	EncodeElements(parts []Element, secLen int) ([]byte, error)
	// DecodeElements splits a byte slice into field elements.
	DecodeElements(b []byte) []Element
	// ElementSize returns the size of each element in bytes.
	ElementSize() int
	// Order returns the number of elements in the field.
	Order() int
}
