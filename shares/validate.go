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

// Pre-flight checks for a set of shares entered for recovery.

package shares

import (
	"errors"
	"fmt"
	"strings"

	"github.com/a-khushal/sss/sharing/secrets"
	glog "github.com/golang/glog"
)

// DefaultMinPayloadLen is the shortest base58 text a 32-byte payload can
// encode to (32 leading zero bytes). Anything shorter was truncated.
const DefaultMinPayloadLen = 32

// Validated is the outcome of a successful Validate call.
type Validated struct {
	// Shares holds the decoded shares in input order.
	Shares []secrets.Share
	// Failures lists entries that were rejected but did not prevent the
	// threshold from being met.
	Failures []*secrets.FormatError
	// EstimatedTotal is the largest index seen. It is only a hint for
	// display: shares with higher indices may exist.
	EstimatedTotal int
}

type validateOptions struct {
	minPayloadLen int
}

// ValidateOption customizes Validate.
type ValidateOption func(*validateOptions)

// WithMinPayloadLen overrides DefaultMinPayloadLen. Zero disables the check.
func WithMinPayloadLen(n int) ValidateOption {
	return func(o *validateOptions) { o.minPayloadLen = n }
}

// Validate checks candidate share strings before reconstruction. Blank
// entries are skipped; every other entry must decode, carry a payload of
// plausible length and a unique index. It succeeds once at least threshold
// entries pass. Positions in returned errors are 1-based indices into raw.
//
// The length check is a heuristic for truncated copies, not an integrity
// check: Validate never attempts reconstruction.
func Validate(raw []string, threshold int, opts ...ValidateOption) (*Validated, error) {
	o := validateOptions{minPayloadLen: DefaultMinPayloadLen}
	for _, opt := range opts {
		opt(&o)
	}
	if threshold < secrets.MinThreshold {
		return nil, &secrets.ConfigError{Field: "threshold", Reason: fmt.Sprintf("must be at least %d, got %d", secrets.MinThreshold, threshold)}
	}

	out := &Validated{}
	positions := make(map[int]int)
	for i, entry := range raw {
		pos := i + 1
		if strings.TrimSpace(entry) == "" {
			continue
		}
		share, err := validateEntry(entry, o.minPayloadLen)
		if err != nil {
			var formatErr *secrets.FormatError
			if !errors.As(err, &formatErr) {
				return nil, err
			}
			formatErr.Position = pos
			glog.Warningf("Rejected share %v: %v", pos, formatErr.Reason)
			out.Failures = append(out.Failures, formatErr)
			continue
		}
		if first, ok := positions[share.Index]; ok {
			return nil, &secrets.DuplicateIndexError{Index: share.Index, First: first, Second: pos}
		}
		positions[share.Index] = pos
		out.Shares = append(out.Shares, share)
		if share.Index > out.EstimatedTotal {
			out.EstimatedTotal = share.Index
		}
	}

	if len(out.Shares) < threshold {
		return nil, &secrets.InsufficientValidSharesError{
			Valid:    len(out.Shares),
			Need:     threshold,
			Failures: out.Failures,
		}
	}
	glog.V(1).Infof("Validated %v shares (%v rejected), highest index %v", len(out.Shares), len(out.Failures), out.EstimatedTotal)
	return out, nil
}

func validateEntry(entry string, minPayloadLen int) (secrets.Share, error) {
	_, payload, err := splitFields(entry)
	if err != nil {
		return secrets.Share{}, err
	}
	if len(payload) < minPayloadLen {
		return secrets.Share{}, &secrets.FormatError{Reason: fmt.Sprintf("payload is %d characters, want at least %d; was it copied fully?", len(payload), minPayloadLen)}
	}
	return Decode(entry)
}
