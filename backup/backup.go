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

// Package backup encrypts the wallet backup document with a password.
//
// The document records the split configuration, the wallet address and the
// (possibly sealed) shares. It never contains the private key.
//
// Two ciphers implement Cipher. Legacy reproduces the original XOR format
// and provides no real confidentiality or integrity; it exists so that old
// backups can still be read. AEAD derives a key with Argon2id and encrypts
// with streaming AES-GCM-HKDF. Decrypt picks the right one for a blob.
package backup

import (
	"fmt"
	"strings"
	"time"

	"github.com/a-khushal/sss/sharing/secrets"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// strictJSON refuses fields the document doesn't define, which makes a
// wrong legacy password much less likely to produce a parseable document.
var strictJSON = jsoniter.Config{
	EscapeHTML:            true,
	SortMapKeys:           true,
	DisallowUnknownFields: true,
}.Froze()

// Document is the backup stored alongside the shares.
type Document struct {
	Config    secrets.Config `json:"config"`
	Address   string         `json:"address"`
	PublicKey string         `json:"publicKey"`
	Shares    []string       `json:"shares"`
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// NewDocument assembles a backup document created at now.
func NewDocument(cfg secrets.Config, address, publicKey string, shares []string, now time.Time) *Document {
	// Always an array in the JSON, never null.
	shareList := make([]string, len(shares))
	copy(shareList, shares)
	return &Document{
		Config:    cfg,
		Address:   address,
		PublicKey: publicKey,
		Shares:    shareList,
		Timestamp: now.UnixMilli(),
	}
}

// CreatedAt returns Timestamp as a time.
func (d *Document) CreatedAt() time.Time {
	return time.UnixMilli(d.Timestamp)
}

// Cipher encrypts and decrypts backup documents.
type Cipher interface {
	// Encrypt serializes doc and encrypts it under password, returning an
	// ASCII string safe to store anywhere.
	Encrypt(doc *Document, password string) (string, error)
	// Decrypt reverses Encrypt. Failures wrap secrets.ErrDecryptionFailed.
	Decrypt(blob, password string) (*Document, error)
}

// Detect returns the cipher that produced blob.
func Detect(blob string) Cipher {
	if strings.HasPrefix(strings.TrimSpace(blob), aeadPrefix) {
		return NewAEAD()
	}
	return Legacy{}
}

// Decrypt decrypts a blob produced by either cipher.
func Decrypt(blob, password string) (*Document, error) {
	return Detect(blob).Decrypt(strings.TrimSpace(blob), password)
}

func checkPassword(password string) error {
	if password == "" {
		return &secrets.KeyLengthError{What: "password", Got: 0, Min: 1}
	}
	return nil
}

// checkShape accepts any configuration a backup could have been written
// with, including the 1-of-n splits older releases allowed. The minimum
// threshold only applies when splitting.
func checkShape(cfg secrets.Config) error {
	if cfg.TotalShares < 1 {
		return &secrets.ConfigError{Field: "totalShares", Reason: fmt.Sprintf("must be positive, got %d", cfg.TotalShares)}
	}
	if cfg.Threshold < 1 || cfg.Threshold > cfg.TotalShares {
		return &secrets.ConfigError{Field: "threshold", Reason: fmt.Sprintf("must be between 1 and %d, got %d", cfg.TotalShares, cfg.Threshold)}
	}
	return nil
}

func marshalDocument(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document to encrypt")
	}
	if err := checkShape(doc.Config); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// unmarshalDocument is the only integrity signal the legacy cipher has.
func unmarshalDocument(b []byte) (*Document, error) {
	doc := &Document{}
	if err := strictJSON.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("%w: recovered text is not a backup document", secrets.ErrDecryptionFailed)
	}
	if err := checkShape(doc.Config); err != nil {
		return nil, fmt.Errorf("%w: recovered document has %v", secrets.ErrDecryptionFailed, err)
	}
	return doc, nil
}
