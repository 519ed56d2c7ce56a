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

// Package wallet handles the Ed25519 keys that get split into shares.
//
// A wallet private key is the 64-byte Ed25519 private key (32-byte seed
// followed by the 32-byte public key), written in base58. The address is the
// base58 public key.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/mr-tron/base58"
)

// Wallet is a key pair in its text form.
type Wallet struct {
	PrivateKey string
	PublicKey  string
	Address    string
}

// Generate creates a new wallet.
func Generate() (*Wallet, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %v", err)
	}
	defer clear(priv)
	return fromKey(priv), nil
}

// FromPrivateKey derives a wallet from a base58 private key. Both the
// 64-byte expanded form and a bare 32-byte seed are accepted.
func FromPrivateKey(privateKey string) (*Wallet, error) {
	raw, err := base58.Decode(privateKey)
	if err != nil {
		return nil, fmt.Errorf("private key is not base58: %v", err)
	}
	defer clear(raw)
	return FromSecret(raw)
}

// FromSecret derives a wallet from raw key bytes, as produced by share
// recovery.
func FromSecret(secret []byte) (*Wallet, error) {
	priv, err := Normalize(secret)
	if err != nil {
		return nil, err
	}
	defer clear(priv)
	return fromKey(priv), nil
}

// Secret returns the 64-byte private key that gets split into shares. The
// caller should clear it when done.
func (w *Wallet) Secret() ([]byte, error) {
	raw, err := base58.Decode(w.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key is not base58: %v", err)
	}
	return raw, nil
}

// Normalize returns the 64-byte private key for a 32-byte seed or a 64-byte
// private key. A 64-byte key whose public half does not match its seed is
// rejected.
func Normalize(secret []byte) (ed25519.PrivateKey, error) {
	switch len(secret) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(secret), nil
	case ed25519.PrivateKeySize:
		priv := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
		if !bytes.Equal(priv[ed25519.SeedSize:], secret[ed25519.SeedSize:]) {
			clear(priv)
			return nil, fmt.Errorf("private key public half does not match its seed")
		}
		return priv, nil
	default:
		return nil, &secrets.KeyLengthError{What: "private key", Got: len(secret), Want: []int{ed25519.SeedSize, ed25519.PrivateKeySize}}
	}
}

func fromKey(priv ed25519.PrivateKey) *Wallet {
	pub := base58.Encode(priv.Public().(ed25519.PublicKey))
	return &Wallet{
		PrivateKey: base58.Encode(priv),
		PublicKey:  pub,
		Address:    pub,
	}
}
