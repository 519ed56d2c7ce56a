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

// Utility functions for the textual share format.
//
// A share is written as its decimal index, a single '-' and the base58
// encoding of its payload:
//
//	3-4TZSjx8x...
//
// The index is 1-based and the payload alphabet excludes the visually
// ambiguous characters 0, O, I and l.

package shares

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/mr-tron/base58"
)

const (
	// Base58Alphabet is the Bitcoin base58 alphabet used for share payloads.
	Base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	separator = "-"
)

// Encode returns the textual form of share.
func Encode(share secrets.Share) string {
	return strconv.Itoa(share.Index) + separator + base58.Encode(share.Payload)
}

// EncodeAll encodes every share in order.
func EncodeAll(shares []secrets.Share) []string {
	out := make([]string, 0, len(shares))
	for _, s := range shares {
		out = append(out, Encode(s))
	}
	return out
}

// Decode parses the textual form of a share.
func Decode(text string) (secrets.Share, error) {
	index, payload, err := splitFields(text)
	if err != nil {
		return secrets.Share{}, err
	}
	decoded, err := base58.Decode(payload)
	if err != nil {
		return secrets.Share{}, &secrets.FormatError{Reason: fmt.Sprintf("payload is not base58: %v", err)}
	}
	return secrets.Share{Index: index, Payload: decoded}, nil
}

// splitFields checks the share text and returns the parsed index and the
// still-encoded payload.
func splitFields(text string) (int, string, error) {
	parts := strings.Split(strings.TrimSpace(text), separator)
	if len(parts) != 2 {
		return 0, "", &secrets.FormatError{Reason: `expected "index-base58data"`}
	}
	indexText, payload := parts[0], parts[1]

	if indexText == "" || strings.TrimLeft(indexText, "0123456789") != "" {
		return 0, "", &secrets.FormatError{Reason: fmt.Sprintf("index %q is not a number", indexText)}
	}
	index, err := strconv.Atoi(indexText)
	if err != nil || index < 1 {
		return 0, "", &secrets.FormatError{Reason: fmt.Sprintf("index %q is not a positive integer", indexText)}
	}

	if payload == "" {
		return 0, "", &secrets.FormatError{Reason: "payload is empty"}
	}
	if i := strings.IndexFunc(payload, func(r rune) bool { return !strings.ContainsRune(Base58Alphabet, r) }); i >= 0 {
		r, _ := utf8.DecodeRuneInString(payload[i:])
		return 0, "", &secrets.FormatError{Reason: fmt.Sprintf("payload contains invalid base58 character %q", r)}
	}
	return index, payload, nil
}
