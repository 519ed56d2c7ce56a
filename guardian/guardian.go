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

// Package guardian seals individual shares for the custodians ("guardians")
// who hold them.
//
// A sealed share is the base58 encoding of
//
//	ephemeral public key (32 bytes) || nonce (24 bytes) || box ciphertext
//
// where the ciphertext is NaCl box (Curve25519, XSalsa20-Poly1305) from a
// fresh ephemeral key to the guardian's key. Every Seal call draws a new
// ephemeral key and a new random nonce, so no (key, nonce) pair repeats.
package guardian

import (
	"crypto/rand"
	"fmt"

	"github.com/a-khushal/sss/shares"
	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/google/tink/go/subtle/random"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/nacl/box"
)

const (
	// KeySize is the size of guardian public and private keys.
	KeySize = 32
	// NonceSize is the size of the box nonce.
	NonceSize = 24
	// Overhead is the authenticator box adds to every plaintext.
	Overhead = box.Overhead

	headerSize = KeySize + NonceSize
)

// KeyPair is a guardian's Curve25519 key pair.
type KeyPair struct {
	PublicKey  *[KeySize]byte
	PrivateKey *[KeySize]byte
}

// GenerateKey creates a new guardian key pair.
func GenerateKey() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate guardian key: %v", err)
	}
	return &KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// PublicKeyString returns the base58 form of the public key.
func (k *KeyPair) PublicKeyString() string {
	return base58.Encode(k.PublicKey[:])
}

// PrivateKeyString returns the base58 form of the private key.
func (k *KeyPair) PrivateKeyString() string {
	return base58.Encode(k.PrivateKey[:])
}

// ParseKey decodes a base58 guardian key. what names the key in errors.
func ParseKey(text, what string) (*[KeySize]byte, error) {
	raw, err := base58.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%s is not base58: %v", what, err)
	}
	return toKey(raw, what)
}

func toKey(raw []byte, what string) (*[KeySize]byte, error) {
	if len(raw) != KeySize {
		return nil, &secrets.KeyLengthError{What: what, Got: len(raw), Want: []int{KeySize}}
	}
	var key [KeySize]byte
	copy(key[:], raw)
	return &key, nil
}

// Seal encrypts plaintext so that only the holder of the private key
// matching guardianPublicKey can open it.
func Seal(plaintext, guardianPublicKey []byte) (string, error) {
	peer, err := toKey(guardianPublicKey, "guardian public key")
	if err != nil {
		return "", err
	}
	ephemeralPub, ephemeralPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ephemeral key: %v", err)
	}
	defer clear(ephemeralPriv[:])

	var nonce [NonceSize]byte
	copy(nonce[:], random.GetRandomBytes(NonceSize))

	out := make([]byte, 0, headerSize+len(plaintext)+Overhead)
	out = append(out, ephemeralPub[:]...)
	out = append(out, nonce[:]...)
	out = box.Seal(out, plaintext, &nonce, peer, ephemeralPriv)
	return base58.Encode(out), nil
}

// Open decrypts a sealed payload with the guardian's private key. Any
// malformed input or authentication failure yields ErrDecryptionFailed and
// no plaintext.
func Open(sealed string, guardianSecretKey []byte) ([]byte, error) {
	priv, err := toKey(guardianSecretKey, "guardian private key")
	if err != nil {
		return nil, err
	}
	defer clear(priv[:])

	raw, err := base58.Decode(sealed)
	if err != nil {
		return nil, fmt.Errorf("%w: sealed share is not base58", secrets.ErrDecryptionFailed)
	}
	if len(raw) < headerSize+Overhead {
		return nil, fmt.Errorf("%w: sealed share is %d bytes, want at least %d", secrets.ErrDecryptionFailed, len(raw), headerSize+Overhead)
	}

	var ephemeralPub [KeySize]byte
	var nonce [NonceSize]byte
	copy(ephemeralPub[:], raw[:KeySize])
	copy(nonce[:], raw[KeySize:headerSize])

	plaintext, ok := box.Open(nil, raw[headerSize:], &nonce, &ephemeralPub, priv)
	if !ok {
		return nil, fmt.Errorf("%w: authentication failed", secrets.ErrDecryptionFailed)
	}
	return plaintext, nil
}

// SealShare seals the text form of share for a guardian.
func SealShare(share secrets.Share, guardianPublicKey []byte) (string, error) {
	return Seal([]byte(shares.Encode(share)), guardianPublicKey)
}

// OpenShare opens a share sealed with SealShare.
func OpenShare(sealed string, guardianSecretKey []byte) (secrets.Share, error) {
	plaintext, err := Open(sealed, guardianSecretKey)
	if err != nil {
		return secrets.Share{}, err
	}
	defer clear(plaintext)
	return shares.Decode(string(plaintext))
}
