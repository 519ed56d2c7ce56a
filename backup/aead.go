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

// Password-based authenticated encryption for backup documents.
//
// Blob format:
//
//	"sss2:" || base64(header || ciphertext)
//
// Header (30 bytes, little endian):
// - "SSSB" magic string (4 bytes)
// - format version (1 byte)
// - Argon2id passes (4 bytes)
// - Argon2id memory in KiB (4 bytes)
// - Argon2id parallelism (1 byte)
// - salt (16 bytes)
//
// The ciphertext is Tink streaming AES-GCM-HKDF output with the header as
// associated data, so altering any header field fails authentication.

package backup

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/google/tink/go/streamingaead/subtle"
	"github.com/google/tink/go/subtle/random"
	"golang.org/x/crypto/argon2"
)

const (
	aeadPrefix  = "sss2:"
	aeadVersion = 1
	saltBytes   = 16
	keyBytes    = 32

	// Parameters for streaming AEAD, required by Tink's subtle API.
	aeadHKDFAlg            = "SHA256"
	aeadSegmentSize        = 4096
	aeadFirstSegmentOffset = 0

	// Upper bounds accepted from a header: four times DefaultKDFParams.
	maxKDFTime     = 12
	maxKDFMemoryKB = 256 * 1024
	maxKDFThreads  = 16
)

var backupMagic = [4]byte{'S', 'S', 'S', 'B'}

type backupHeader struct {
	Magic    [4]byte
	Version  uint8
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	Salt     [saltBytes]byte
}

// KDFParams are the Argon2id cost parameters.
type KDFParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

// DefaultKDFParams follows the RFC 9106 second recommended option.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, MemoryKB: 64 * 1024, Threads: 4}
}

func (p KDFParams) validate() error {
	switch {
	case p.Time == 0 || p.Time > maxKDFTime:
		return fmt.Errorf("argon2 time %d out of range [1, %d]", p.Time, maxKDFTime)
	case p.MemoryKB < 8*uint32(p.Threads) || p.MemoryKB > maxKDFMemoryKB:
		return fmt.Errorf("argon2 memory %d KiB out of range [%d, %d]", p.MemoryKB, 8*uint32(p.Threads), maxKDFMemoryKB)
	case p.Threads == 0 || p.Threads > maxKDFThreads:
		return fmt.Errorf("argon2 parallelism %d out of range [1, %d]", p.Threads, maxKDFThreads)
	}
	return nil
}

// AEAD encrypts backups under a key derived from the password with Argon2id.
// Parameters are stored in the blob, so decryption ignores Params.
type AEAD struct {
	Params KDFParams
}

var _ Cipher = (*AEAD)(nil)

// NewAEAD returns an AEAD cipher using DefaultKDFParams.
func NewAEAD() *AEAD {
	return &AEAD{Params: DefaultKDFParams()}
}

// Encrypt implements Cipher.
func (a *AEAD) Encrypt(doc *Document, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	if err := a.Params.validate(); err != nil {
		return "", err
	}
	plaintext, err := marshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize backup document: %w", err)
	}
	defer clear(plaintext)

	header := backupHeader{
		Magic:    backupMagic,
		Version:  aeadVersion,
		Time:     a.Params.Time,
		MemoryKB: a.Params.MemoryKB,
		Threads:  a.Params.Threads,
	}
	copy(header.Salt[:], random.GetRandomBytes(saltBytes))

	out := &bytes.Buffer{}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return "", fmt.Errorf("failed to write backup header: %v", err)
	}
	aad := bytes.Clone(out.Bytes())

	key := deriveKey(password, &header)
	defer clear(key)
	if err := aeadEncrypt(key, bytes.NewReader(plaintext), out, aad); err != nil {
		return "", err
	}

	return aeadPrefix + base64.StdEncoding.EncodeToString(out.Bytes()), nil
}

// Decrypt implements Cipher.
func (a *AEAD) Decrypt(blob, password string) (*Document, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	encoded, ok := bytes.CutPrefix([]byte(blob), []byte(aeadPrefix))
	if !ok {
		return nil, fmt.Errorf("%w: backup does not start with %q", secrets.ErrDecryptionFailed, aeadPrefix)
	}
	data, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("%w: backup is not base64", secrets.ErrDecryptionFailed)
	}

	input := bytes.NewReader(data)
	header, err := readBackupHeader(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", secrets.ErrDecryptionFailed, err)
	}
	aad := data[:binary.Size(header)]

	key := deriveKey(password, header)
	defer clear(key)

	plaintext := &bytes.Buffer{}
	if err := aeadDecrypt(key, input, plaintext, aad); err != nil {
		return nil, fmt.Errorf("%w: %v", secrets.ErrDecryptionFailed, err)
	}
	defer clear(plaintext.Bytes())

	return unmarshalDocument(plaintext.Bytes())
}

func readBackupHeader(input io.Reader) (*backupHeader, error) {
	var header backupHeader
	if err := binary.Read(input, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read backup header: %v", err)
	}
	if !bytes.Equal(header.Magic[:], backupMagic[:]) {
		return nil, fmt.Errorf("data is not a known backup format")
	}
	if header.Version != aeadVersion {
		return nil, fmt.Errorf("unsupported backup version %d", header.Version)
	}
	params := KDFParams{Time: header.Time, MemoryKB: header.MemoryKB, Threads: header.Threads}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &header, nil
}

func deriveKey(password string, header *backupHeader) []byte {
	return argon2.IDKey([]byte(password), header.Salt[:], header.Time, header.MemoryKB, header.Threads, keyBytes)
}

func aeadEncrypt(key []byte, input io.Reader, output io.Writer, aad []byte) error {
	cipher, err := subtle.NewAESGCMHKDF(key, aeadHKDFAlg, keyBytes, aeadSegmentSize, aeadFirstSegmentOffset)
	if err != nil {
		return fmt.Errorf("unable to create new cipher: %v", err)
	}

	writer, err := cipher.NewEncryptingWriter(output, aad)
	if err != nil {
		return fmt.Errorf("unable to create encrypt writer: %v", err)
	}

	if _, err := io.Copy(writer, input); err != nil {
		return fmt.Errorf("failed to encrypt: %v", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close encrypt writer: %v", err)
	}

	return nil
}

func aeadDecrypt(key []byte, input io.Reader, output io.Writer, aad []byte) error {
	cipher, err := subtle.NewAESGCMHKDF(key, aeadHKDFAlg, keyBytes, aeadSegmentSize, aeadFirstSegmentOffset)
	if err != nil {
		return fmt.Errorf("unable to create new cipher: %v", err)
	}

	reader, err := cipher.NewDecryptingReader(input, aad)
	if err != nil {
		return fmt.Errorf("unable to create decrypt reader: %v", err)
	}

	if _, err := io.Copy(output, reader); err != nil {
		return fmt.Errorf("failed to decrypt: %v", err)
	}

	return nil
}
