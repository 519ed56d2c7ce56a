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

// Package shamir performs t-of-n [Shamir Secret Sharing] on arbitrary byte
// strings over GF(2^8). Each secret byte is the constant term of its own
// random polynomial of degree t-1; share i holds the evaluation of every
// polynomial at x = i. Lagrange interpolation at x = 0 recovers the secret
// from any t shares, while t-1 shares are consistent with every secret.
//
// The scheme assumes a trusted dealer and a passive adversary. Reconstruction
// does not detect bogus shares: a tampered share silently yields a different
// secret. Examples of this attack: https://crypto.stackexchange.com/q/41994/76875
//
// [Shamir Secret Sharing]: https://web.mit.edu/6.857/OldStuff/Fall03/ref/Shamir-HowToShareAsecrets.pdf
package shamir

import (
	"fmt"

	"github.com/a-khushal/sss/sharing/internal/field"
	"github.com/a-khushal/sss/sharing/internal/field/gf8"
	"github.com/a-khushal/sss/sharing/secrets"
)

// Split splits secret into numShares shares, any threshold of which
// reconstruct it. Shares are returned ordered by index, starting at 1.
func Split(secret []byte, numShares, threshold int) ([]secrets.Share, error) {
	gf := gf8.New()
	if err := validateSplitInput(secret, numShares, threshold, gf); err != nil {
		return nil, err
	}

	xs := make([]field.Element, numShares)
	shares := make([]secrets.Share, numShares)
	for i := range shares {
		x, err := gf.CreateElement(i + 1)
		if err != nil {
			return nil, err
		}
		xs[i] = x
		shares[i] = secrets.Share{
			Index:   i + 1,
			Payload: make([]byte, 0, len(secret)),
		}
	}

	// One polynomial per secret byte:
	//   f(x) = s + r_1 * x + ... + r_(t-1) * x^(t-1)
	// shares[i].Payload = [ F1(i+1), F2(i+1), ..., FN(i+1) ]
	coefficients := make([]field.Element, threshold)
	zero, err := gf.CreateElement(0)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range coefficients {
			coefficients[i] = zero
		}
	}()
	for _, subsecret := range gf.DecodeElements(secret) {
		coefficients[0] = subsecret
		for i := 1; i < threshold; i++ {
			if coefficients[i], err = gf.NewRandom(); err != nil {
				return nil, err
			}
		}
		for i, x := range xs {
			y := evaluatePolynomial(coefficients, x, zero)
			shares[i].Payload = append(shares[i].Payload, y.Bytes()...)
		}
	}
	return shares, nil
}

// Combine reconstructs a secret from shares using every share supplied. At
// least two shares are required; the caller is responsible for supplying as
// many as the split's threshold, see CombineThreshold.
func Combine(shares []secrets.Share) ([]byte, error) {
	return CombineThreshold(shares, secrets.MinThreshold)
}

// CombineThreshold reconstructs a secret from shares, failing before any
// interpolation when fewer than threshold shares are supplied. The result
// does not depend on the order of shares.
func CombineThreshold(shares []secrets.Share, threshold int) ([]byte, error) {
	gf := gf8.New()
	if threshold < secrets.MinThreshold {
		threshold = secrets.MinThreshold
	}
	if len(shares) < threshold {
		return nil, &secrets.InsufficientSharesError{Got: len(shares), Need: threshold}
	}
	if err := validateCombineInput(shares, gf); err != nil {
		return nil, err
	}

	xs := make([]field.Element, len(shares))
	for i, s := range shares {
		x, err := gf.CreateElement(s.Index)
		if err != nil {
			return nil, &secrets.CorruptShareError{Index: s.Index, Reason: err.Error()}
		}
		xs[i] = x
	}
	// The basis values at x = 0 only depend on the indices, so they are
	// computed once for all secret bytes.
	basis, err := lagrangeBasisAtZero(xs, gf)
	if err != nil {
		return nil, err
	}

	secretLen := len(shares[0].Payload) / gf.ElementSize()
	subsecrets := make([]field.Element, secretLen)
	ys := make([]field.Element, len(shares))
	for i := range subsecrets {
		for j, s := range shares {
			if ys[j], err = gf.ReadElement(s.Payload, i); err != nil {
				return nil, err
			}
		}
		if subsecrets[i], err = interpolateAtZero(basis, ys, gf); err != nil {
			return nil, err
		}
	}
	return gf.EncodeElements(subsecrets, secretLen)
}

// evaluatePolynomial evaluates c[0] + c[1]*x + ... + c[n-1]*x^(n-1) with
// Horner's rule.
func evaluatePolynomial(c []field.Element, x, zero field.Element) field.Element {
	sum := zero
	for i := len(c) - 1; i > 0; i-- {
		sum = sum.Add(c[i]).Multiply(x)
	}
	return sum.Add(c[0])
}

// lagrangeBasisAtZero returns l_i(0) = ∏_{j≠i} x[j] / (x[j] - x[i]) for every i.
func lagrangeBasisAtZero(xs []field.Element, gf field.GaloisField) ([]field.Element, error) {
	out := make([]field.Element, len(xs))
	for i := range xs {
		l, err := gf.CreateElement(1)
		if err != nil {
			return nil, err
		}
		for j := range xs {
			if i == j {
				continue
			}
			inv, err := xs[j].Subtract(xs[i]).Inverse()
			if err != nil {
				return nil, err
			}
			l = l.Multiply(xs[j]).Multiply(inv)
		}
		out[i] = l
	}
	return out, nil
}

// interpolateAtZero returns ∑ y[i] * l_i(0).
func interpolateAtZero(basis, ys []field.Element, gf field.GaloisField) (field.Element, error) {
	if len(basis) != len(ys) {
		return nil, fmt.Errorf("got %d basis values for %d points", len(basis), len(ys))
	}
	sum, err := gf.CreateElement(0)
	if err != nil {
		return nil, err
	}
	for i, y := range ys {
		sum = sum.Add(y.Multiply(basis[i]))
	}
	return sum, nil
}

func validateSplitInput(secret []byte, numShares, threshold int, gf field.GaloisField) error {
	if len(secret) == 0 {
		return &secrets.ConfigError{Field: "secret", Reason: "must not be empty"}
	}
	if numShares < secrets.MinShares {
		return &secrets.ConfigError{Field: "numShares", Reason: fmt.Sprintf("must be at least %d, got %d", secrets.MinShares, numShares)}
	}
	// x = 0 is the secret itself, so the field has Order()-1 usable points.
	if numShares >= gf.Order() {
		return &secrets.ConfigError{Field: "numShares", Reason: fmt.Sprintf("must be below %d, got %d", gf.Order(), numShares)}
	}
	if threshold < secrets.MinThreshold {
		return &secrets.ConfigError{Field: "threshold", Reason: fmt.Sprintf("must be at least %d, got %d", secrets.MinThreshold, threshold)}
	}
	if threshold > numShares {
		return &secrets.ConfigError{Field: "threshold", Reason: fmt.Sprintf("%d exceeds numShares %d", threshold, numShares)}
	}
	return nil
}

func validateCombineInput(shares []secrets.Share, gf field.GaloisField) error {
	seen := make(map[int]int, len(shares))
	want := len(shares[0].Payload)
	for pos, s := range shares {
		if s.Index < 1 || s.Index >= gf.Order() {
			return &secrets.CorruptShareError{Index: s.Index, Reason: fmt.Sprintf("index must be between 1 and %d", gf.Order()-1)}
		}
		if len(s.Payload) == 0 {
			return &secrets.CorruptShareError{Index: s.Index, Reason: "empty payload"}
		}
		if len(s.Payload) != want {
			return &secrets.CorruptShareError{Index: s.Index, Reason: fmt.Sprintf("payload is %d bytes, share %d has %d", len(s.Payload), shares[0].Index, want)}
		}
		if first, ok := seen[s.Index]; ok {
			return &secrets.DuplicateIndexError{Index: s.Index, First: first, Second: pos + 1}
		}
		seen[s.Index] = pos + 1
	}
	return nil
}
