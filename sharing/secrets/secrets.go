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

// Package secrets contains the types shared by the secret sharing packages:
// the t-of-n configuration a dealer splits with, the shares it hands out,
// and the errors every layer reports.
package secrets

import "fmt"

const (
	// MinShares is the smallest number of shares a secret can be split into.
	MinShares = 2
	// MaxShares is the largest number of shares a wallet backup is split into.
	MaxShares = 10
	// MinThreshold is the smallest accepted threshold. A threshold of one
	// would hand every custodian a full copy of the secret.
	MinThreshold = 2
)

// Config is the t-of-n configuration of a split.
type Config struct {
	TotalShares int `json:"totalShares"`
	Threshold   int `json:"threshold"`
}

// Validate checks that the configuration is within the supported range.
func (c Config) Validate() error {
	if c.TotalShares < MinShares || c.TotalShares > MaxShares {
		return &ConfigError{Field: "totalShares", Reason: fmt.Sprintf("must be between %d and %d, got %d", MinShares, MaxShares, c.TotalShares)}
	}
	if c.Threshold < MinThreshold {
		return &ConfigError{Field: "threshold", Reason: fmt.Sprintf("must be at least %d, got %d", MinThreshold, c.Threshold)}
	}
	if c.Threshold > c.TotalShares {
		return &ConfigError{Field: "threshold", Reason: fmt.Sprintf("%d exceeds totalShares %d", c.Threshold, c.TotalShares)}
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%d-of-%d", c.Threshold, c.TotalShares)
}

// Share is one point of a split secret. Index is the 1-based evaluation
// point and Payload holds one evaluation per secret byte.
type Share struct {
	Index   int
	Payload []byte
}
