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

package secrets

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDecryptionFailed is returned when a sealed share or an encrypted backup
// can't be opened. It never says which check failed.
var ErrDecryptionFailed = errors.New("decryption failed")

// ConfigError reports a share count or threshold outside the accepted range.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// FormatError reports a share whose text can't be parsed. Position is the
// 1-based position of the entry in the caller's input, or 0 when the share
// was decoded on its own.
type FormatError struct {
	Position int
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("share %d: %s", e.Position, e.Reason)
	}
	return fmt.Sprintf("malformed share: %s", e.Reason)
}

// DuplicateIndexError reports two shares carrying the same index. First and
// Second are 1-based input positions.
type DuplicateIndexError struct {
	Index  int
	First  int
	Second int
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("shares %d and %d both have index %d", e.First, e.Second, e.Index)
}

// InsufficientSharesError is returned by reconstruction when fewer shares
// than required were supplied.
type InsufficientSharesError struct {
	Got  int
	Need int
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("not enough shares to reconstruct the secret, need at least %d, got %d", e.Need, e.Got)
}

// InsufficientValidSharesError is returned by validation when too few
// entries survived. Failures lists the entries that were rejected.
type InsufficientValidSharesError struct {
	Valid    int
	Need     int
	Failures []*FormatError
}

func (e *InsufficientValidSharesError) Error() string {
	msg := fmt.Sprintf("only %d valid shares, need at least %d", e.Valid, e.Need)
	if len(e.Failures) == 0 {
		return msg
	}
	reasons := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		reasons = append(reasons, f.Error())
	}
	return msg + " (" + strings.Join(reasons, "; ") + ")"
}

// Unwrap exposes the per-entry failures to errors.As.
func (e *InsufficientValidSharesError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

// CorruptShareError reports a share set that can't belong to one split.
type CorruptShareError struct {
	Index  int
	Reason string
}

func (e *CorruptShareError) Error() string {
	return fmt.Sprintf("corrupt share %d: %s", e.Index, e.Reason)
}

// KeyLengthError reports key material of the wrong size. Either Want lists
// the exact accepted lengths or Min gives a lower bound.
type KeyLengthError struct {
	What string
	Got  int
	Want []int
	Min  int
}

func (e *KeyLengthError) Error() string {
	if len(e.Want) == 0 {
		return fmt.Sprintf("%s must be at least %d bytes, got %d", e.What, e.Min, e.Got)
	}
	want := make([]string, 0, len(e.Want))
	for _, w := range e.Want {
		want = append(want, fmt.Sprint(w))
	}
	return fmt.Sprintf("%s must be %s bytes, got %d", e.What, strings.Join(want, " or "), e.Got)
}
