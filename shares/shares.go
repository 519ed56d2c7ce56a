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

// Package shares splits wallet keys into text shares and recovers them.
package shares

import (
	"crypto/subtle"
	"fmt"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/a-khushal/sss/sharing/shamir"
	glog "github.com/golang/glog"
)

const (
	// SeedBytes is the size of an Ed25519 seed.
	SeedBytes = 32
	// ExpandedKeyBytes is the size of an Ed25519 private key (seed and public key).
	ExpandedKeyBytes = 64
)

// Split splits secret according to cfg and returns the encoded shares in
// index order. Before returning, the first cfg.Threshold shares are combined
// again and compared with secret.
func Split(secret []byte, cfg secrets.Config) ([]string, error) {
	if len(secret) != SeedBytes && len(secret) != ExpandedKeyBytes {
		return nil, &secrets.KeyLengthError{What: "secret", Got: len(secret), Want: []int{SeedBytes, ExpandedKeyBytes}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	split, err := shamir.Split(secret, cfg.TotalShares, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("error splitting secret: %w", err)
	}

	recombined, err := shamir.CombineThreshold(split[:cfg.Threshold], cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("error verifying split: %w", err)
	}
	defer clear(recombined)
	if subtle.ConstantTimeCompare(recombined, secret) != 1 {
		return nil, fmt.Errorf("split shares do not reconstruct the secret")
	}

	glog.Infof("Split %v-byte secret into %v shares", len(secret), cfg)
	return EncodeAll(split), nil
}

// Recover validates raw share strings and reconstructs the secret from the
// ones that pass. Fewer than threshold valid shares is an error; extra valid
// shares take part in the interpolation.
func Recover(raw []string, threshold int, opts ...ValidateOption) ([]byte, error) {
	v, err := Validate(raw, threshold, opts...)
	if err != nil {
		return nil, err
	}
	glog.Infof("Attempting to reconstruct secret from %v shares", len(v.Shares))
	secret, err := shamir.CombineThreshold(v.Shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("error combining shares: %w", err)
	}
	if len(secret) != SeedBytes && len(secret) != ExpandedKeyBytes {
		clear(secret)
		return nil, &secrets.KeyLengthError{What: "reconstructed secret", Got: len(secret), Want: []int{SeedBytes, ExpandedKeyBytes}}
	}
	glog.Infof("Reconstructed secret from %v shares", len(v.Shares))
	return secret, nil
}
