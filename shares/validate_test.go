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
	"errors"
	"strings"
	"testing"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/google/tink/go/subtle/random"
)

func splitForTest(t *testing.T, total, threshold int) []string {
	t.Helper()
	encoded, err := Split(random.GetRandomBytes(ExpandedKeyBytes), secrets.Config{TotalShares: total, Threshold: threshold})
	if err != nil {
		t.Fatalf("Split() failed: %v", err)
	}
	return encoded
}

func TestValidateAcceptsExactlyThreshold(t *testing.T) {
	encoded := splitForTest(t, 5, 3)

	v, err := Validate(encoded[:3], 3)
	if err != nil {
		t.Fatalf("Validate() with threshold shares failed: %v", err)
	}
	if len(v.Shares) != 3 {
		t.Errorf("Validate() returned %d shares, want 3", len(v.Shares))
	}

	_, err = Validate(encoded[:2], 3)
	var insufficient *secrets.InsufficientValidSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Validate() with threshold-1 shares err = %v, want InsufficientValidSharesError", err)
	}
	if insufficient.Valid != 2 || insufficient.Need != 3 {
		t.Errorf("InsufficientValidSharesError = %+v, want Valid=2 Need=3", insufficient)
	}
}

func TestValidateSkipsBlanks(t *testing.T) {
	encoded := splitForTest(t, 4, 2)
	v, err := Validate([]string{"", encoded[1], "  ", encoded[3], "\t"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Shares) != 2 || len(v.Failures) != 0 {
		t.Errorf("Validate() = %d shares, %d failures; want 2, 0", len(v.Shares), len(v.Failures))
	}
}

func TestValidateRejectsDuplicateIndex(t *testing.T) {
	encoded := splitForTest(t, 4, 2)
	// Same index, different payload.
	forged := "2-" + strings.SplitN(encoded[3], "-", 2)[1]

	_, err := Validate([]string{encoded[1], encoded[0], "", forged}, 2)
	var dup *secrets.DuplicateIndexError
	if !errors.As(err, &dup) {
		t.Fatalf("Validate() err = %v, want DuplicateIndexError", err)
	}
	if dup.Index != 2 || dup.First != 1 || dup.Second != 4 {
		t.Errorf("DuplicateIndexError = %+v, want Index=2 First=1 Second=4", dup)
	}
}

func TestValidateCollectsEntryFailures(t *testing.T) {
	encoded := splitForTest(t, 5, 2)
	bad := strings.Replace(encoded[2], "-", "-0", 1)
	short := encoded[3][:10]

	v, err := Validate([]string{encoded[0], bad, encoded[1], short}, 2)
	if err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
	if len(v.Shares) != 2 {
		t.Errorf("Validate() returned %d shares, want 2", len(v.Shares))
	}
	if len(v.Failures) != 2 {
		t.Fatalf("Validate() returned %d failures, want 2", len(v.Failures))
	}
	if v.Failures[0].Position != 2 || v.Failures[1].Position != 4 {
		t.Errorf("failure positions = %d, %d; want 2, 4", v.Failures[0].Position, v.Failures[1].Position)
	}
}

func TestValidateRejectsInvalidAlphabet(t *testing.T) {
	encoded := splitForTest(t, 3, 2)
	bad := encoded[1][:len(encoded[1])-1] + "l"

	_, err := Validate([]string{encoded[0], bad}, 2)
	var insufficient *secrets.InsufficientValidSharesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Validate() err = %v, want InsufficientValidSharesError", err)
	}
	var formatErr *secrets.FormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("Validate() err = %v does not carry a FormatError", err)
	}
	if formatErr.Position != 2 {
		t.Errorf("FormatError.Position = %d, want 2", formatErr.Position)
	}
}

func TestValidateMinPayloadLenOption(t *testing.T) {
	shortShares := []string{"1-2222", "2-3333"}

	if _, err := Validate(shortShares, 2); err == nil {
		t.Error("Validate() with default minimum accepted 4-character payloads")
	}
	if _, err := Validate(shortShares, 2, WithMinPayloadLen(0)); err != nil {
		t.Errorf("Validate() with minimum disabled failed: %v", err)
	}
}

func TestValidateEstimatesTotal(t *testing.T) {
	encoded := splitForTest(t, 7, 3)
	v, err := Validate([]string{encoded[0], encoded[5], encoded[2]}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if v.EstimatedTotal != 6 {
		t.Errorf("EstimatedTotal = %d, want 6", v.EstimatedTotal)
	}
}

func TestValidateRejectsLowThreshold(t *testing.T) {
	var cfgErr *secrets.ConfigError
	if _, err := Validate(nil, 1); !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() with threshold 1 err = %v, want ConfigError", err)
	}
}
