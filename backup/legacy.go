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

package backup

import (
	"encoding/base64"
	"fmt"

	"github.com/a-khushal/sss/sharing/secrets"
)

// Legacy is the original backup format: the JSON document XORed with the
// password repeated to its length, then base64 encoded. There is no key
// derivation and no authentication tag. Use AEAD for new backups.
type Legacy struct{}

var _ Cipher = Legacy{}

// Encrypt implements Cipher.
func (Legacy) Encrypt(doc *Document, password string) (string, error) {
	if err := checkPassword(password); err != nil {
		return "", err
	}
	plaintext, err := marshalDocument(doc)
	if err != nil {
		return "", fmt.Errorf("failed to serialize backup document: %w", err)
	}
	xorWithPassword(plaintext, []byte(password))
	return base64.StdEncoding.EncodeToString(plaintext), nil
}

// Decrypt implements Cipher. A wrong password almost always yields text that
// fails to parse; when it doesn't, the document is garbage.
func (Legacy) Decrypt(blob, password string) (*Document, error) {
	if err := checkPassword(password); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: backup is not base64", secrets.ErrDecryptionFailed)
	}
	xorWithPassword(data, []byte(password))
	defer clear(data)
	return unmarshalDocument(data)
}

func xorWithPassword(data, password []byte) {
	for i := range data {
		data[i] ^= password[i%len(password)]
	}
}
