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

package shares

import (
	"bytes"
	"errors"
	"testing"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/google/tink/go/subtle/random"
)

func TestSplitAndRecoverRestoresSecret(t *testing.T) {
	for _, size := range []uint32{SeedBytes, ExpandedKeyBytes} {
		secret := random.GetRandomBytes(size)
		nShares, threshold := 5, 3

		encoded, err := Split(secret, secrets.Config{TotalShares: nShares, Threshold: threshold})
		if err != nil {
			t.Fatalf("Split(secret, %d, %d) failed with error %v", nShares, threshold, err)
		}
		if len(encoded) != nShares {
			t.Fatalf("Split(secret, %d, %d) returned %d shares, expected %d", nShares, threshold, len(encoded), nShares)
		}

		// There are 5*4*3 ordered choices of three shares.
		for i := 0; i < nShares; i++ {
			for j := 0; j < nShares; j++ {
				if j == i {
					continue
				}
				for k := 0; k < nShares; k++ {
					if k == i || k == j {
						continue
					}
					parts := []string{encoded[i], encoded[j], encoded[k]}
					recovered, err := Recover(parts, threshold)
					if err != nil {
						t.Fatalf("Recover(%v) failed: %v", parts, err)
					}
					if !bytes.Equal(recovered, secret) {
						t.Fatalf("Recover() with shares (i:%d, j:%d, k:%d) = %x, want %x", i, j, k, recovered, secret)
					}
				}
			}
		}
	}
}

func TestSplitRejectsBadSecretLength(t *testing.T) {
	for _, size := range []uint32{1, 31, 33, 63, 65} {
		_, err := Split(random.GetRandomBytes(size), secrets.Config{TotalShares: 3, Threshold: 2})
		var lenErr *secrets.KeyLengthError
		if !errors.As(err, &lenErr) {
			t.Errorf("Split() with %d-byte secret err = %v, want KeyLengthError", size, err)
		}
	}
}

func TestSplitRejectsBadConfig(t *testing.T) {
	for _, cfg := range []secrets.Config{
		{TotalShares: 1, Threshold: 1},
		{TotalShares: 11, Threshold: 3},
		{TotalShares: 5, Threshold: 1},
		{TotalShares: 5, Threshold: 6},
	} {
		_, err := Split(random.GetRandomBytes(SeedBytes), cfg)
		var cfgErr *secrets.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Errorf("Split() with %+v err = %v, want ConfigError", cfg, err)
		}
	}
}

func TestRecoverBelowThresholdFails(t *testing.T) {
	encoded, err := Split(random.GetRandomBytes(ExpandedKeyBytes), secrets.Config{TotalShares: 5, Threshold: 3})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Recover(encoded[:2], 3)
	var insufficient *secrets.InsufficientValidSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Recover() err = %v, want InsufficientValidSharesError", err)
	}
}

func TestRecoverDetectsTruncatedShare(t *testing.T) {
	secret := random.GetRandomBytes(ExpandedKeyBytes)
	encoded, err := Split(secret, secrets.Config{TotalShares: 3, Threshold: 2})
	if err != nil {
		t.Fatal(err)
	}
	// Dropping trailing characters keeps the text valid but shortens the payload.
	truncated := encoded[1][:len(encoded[1])-8]

	_, err = Recover([]string{encoded[0], truncated}, 2)
	var corrupt *secrets.CorruptShareError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Recover() err = %v, want CorruptShareError", err)
	}
}
