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

// Package gf8 implements the field GF(2^8) with the AES reduction polynomial.
// Every secret byte is one field element, so a share payload is exactly as
// long as the secret it was split from.
package gf8

import (
	"crypto/rand"
	"fmt"

	"github.com/a-khushal/sss/sharing/internal/field"
)

// x^8 + x^4 + x^3 + x + 1; the x^8 term falls off the byte.
const reductionPolynomial = 0x1B

type element byte

// Add returns e XOR a.
func (e element) Add(a field.Element) field.Element {
	return e ^ a.(element)
}

// Subtract is the same operation as Add in characteristic 2.
func (e element) Subtract(a field.Element) field.Element {
	return e ^ a.(element)
}

// Multiply returns the product of e and a reduced by the field polynomial.
func (e element) Multiply(a field.Element) field.Element {
	// No lookup tables and no data dependent branches: each step derives an
	// all-ones or all-zeros mask from a single bit and ANDs with it.
	x, y := byte(e), byte(a.(element))
	var p byte
	for i := 7; i >= 0; i-- {
		carry := -(p >> 7) & reductionPolynomial
		bit := -((x >> i) & 1) & y
		p = (p << 1) ^ carry ^ bit
	}
	return element(p)
}

// Inverse returns e^254, which equals e^-1 for every non-zero e.
func (e element) Inverse() (field.Element, error) {
	if e == 0 {
		return nil, fmt.Errorf("zero has no multiplicative inverse")
	}
	// Addition chain from https://crypto.stackexchange.com/a/40140
	e2 := e.Multiply(e)
	e3 := e2.Multiply(e)
	e6 := e3.Multiply(e3)
	e12 := e6.Multiply(e6)
	e15 := e12.Multiply(e3)
	e30 := e15.Multiply(e15)
	e60 := e30.Multiply(e30)
	e63 := e60.Multiply(e3)
	e126 := e63.Multiply(e63)
	e127 := e126.Multiply(e)
	return e127.Multiply(e127), nil
}

// Equal reports whether a holds the same byte.
func (e element) Equal(a field.Element) bool {
	other, ok := a.(element)
	return ok && e == other
}

// Bytes returns the single byte of the element.
func (e element) Bytes() []byte {
	return []byte{byte(e)}
}

type gf256 struct{}

// New returns GF(2^8).
func New() field.GaloisField { return gf256{} }

var _ field.GaloisField = gf256{}

func (gf256) CreateElement(i int) (field.Element, error) {
	if i < 0 || i > 0xFF {
		return nil, fmt.Errorf("%d is outside GF(2^8)", i)
	}
	return element(i), nil
}

func (gf256) NewRandom() (field.Element, error) {
	var b [1]byte
	if _, err := rand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("rand.Read failed: %v", err)
	}
	return element(b[0]), nil
}

func (gf256) ReadElement(b []byte, i int) (field.Element, error) {
	if i < 0 || i >= len(b) {
		return nil, fmt.Errorf("offset %d out of range for %d bytes", i, len(b))
	}
	return element(b[i]), nil
}

func (gf256) EncodeElements(parts []field.Element, secLen int) ([]byte, error) {
	if len(parts) != secLen {
		return nil, fmt.Errorf("can't encode %d elements into %d bytes", len(parts), secLen)
	}
	out := make([]byte, secLen)
	for i, p := range parts {
		out[i] = byte(p.(element))
	}
	return out, nil
}

func (gf256) DecodeElements(b []byte) []field.Element {
	elems := make([]field.Element, len(b))
	for i, v := range b {
		elems[i] = element(v)
	}
	return elems
}

func (gf256) ElementSize() int { return 1 }

func (gf256) Order() int { return 256 }
