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
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/google/go-cmp/cmp"
)

// Cheap parameters so tests don't spend 64 MiB per derivation.
var testParams = KDFParams{Time: 1, MemoryKB: 64, Threads: 1}

func testDocument() *Document {
	return NewDocument(
		secrets.Config{TotalShares: 5, Threshold: 3},
		"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",
		"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",
		[]string{"1-abc", "2-def", "3-ghi", "4-jkm", "5-npq"},
		time.UnixMilli(1700000000123),
	)
}

func ciphers() map[string]Cipher {
	return map[string]Cipher{
		"legacy": Legacy{},
		"aead":   &AEAD{Params: testParams},
	}
}

func TestRoundTrip(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			doc := testDocument()
			blob, err := c.Encrypt(doc, "correct horse")
			if err != nil {
				t.Fatalf("Encrypt() failed: %v", err)
			}
			if strings.Contains(blob, "1-abc") {
				t.Error("encrypted blob contains a share in the clear")
			}

			got, err := c.Decrypt(blob, "correct horse")
			if err != nil {
				t.Fatalf("Decrypt() failed: %v", err)
			}
			if diff := cmp.Diff(doc, got); diff != "" {
				t.Errorf("Decrypt(Encrypt(doc)) mismatch (-want +got):\n%s", diff)
			}

			got, err = Decrypt(blob, "correct horse")
			if err != nil {
				t.Fatalf("package Decrypt() failed: %v", err)
			}
			if diff := cmp.Diff(doc, got); diff != "" {
				t.Errorf("package Decrypt() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrongPasswordFails(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			blob, err := c.Encrypt(testDocument(), "correct horse")
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Decrypt(blob, "battery staple"); !errors.Is(err, secrets.ErrDecryptionFailed) {
				t.Errorf("Decrypt() with wrong password err = %v, want ErrDecryptionFailed", err)
			}
		})
	}
}

func TestEmptyPasswordRejected(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			var lenErr *secrets.KeyLengthError
			if _, err := c.Encrypt(testDocument(), ""); !errors.As(err, &lenErr) {
				t.Errorf("Encrypt() with empty password err = %v, want KeyLengthError", err)
			}
			if _, err := c.Decrypt("AAAA", ""); !errors.As(err, &lenErr) {
				t.Errorf("Decrypt() with empty password err = %v, want KeyLengthError", err)
			}
		})
	}
}

func TestMalformedBlobFails(t *testing.T) {
	for _, tc := range []struct {
		name string
		c    Cipher
		blob string
	}{
		{name: "legacy not base64", c: Legacy{}, blob: "!!!"},
		{name: "legacy not json", c: Legacy{}, blob: base64.StdEncoding.EncodeToString([]byte("hello world"))},
		{name: "aead missing prefix", c: &AEAD{}, blob: "AAAA"},
		{name: "aead not base64", c: &AEAD{}, blob: aeadPrefix + "!!!"},
		{name: "aead short header", c: &AEAD{}, blob: aeadPrefix + base64.StdEncoding.EncodeToString([]byte("SSSB"))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.c.Decrypt(tc.blob, "pw"); !errors.Is(err, secrets.ErrDecryptionFailed) {
				t.Errorf("Decrypt(%q) err = %v, want ErrDecryptionFailed", tc.blob, err)
			}
		})
	}
}

func TestLegacyFormat(t *testing.T) {
	doc := testDocument()
	blob, err := Legacy{}.Encrypt(doc, "k")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		t.Fatalf("legacy blob is not standard base64: %v", err)
	}
	for i := range raw {
		raw[i] ^= 'k'
	}
	want := `{"config":{"totalShares":5,"threshold":3},"address":"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",` +
		`"publicKey":"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G","shares":["1-abc","2-def","3-ghi","4-jkm","5-npq"],` +
		`"timestamp":1700000000123}`
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Errorf("legacy plaintext mismatch (-want +got):\n%s", diff)
	}
}

// legacyBlob encrypts plaintext the way the original app did.
func legacyBlob(plaintext, password string) string {
	data := []byte(plaintext)
	for i := range data {
		data[i] ^= password[i%len(password)]
	}
	return base64.StdEncoding.EncodeToString(data)
}

func TestLegacyDecryptsOneOfNBackup(t *testing.T) {
	plaintext := `{"config":{"totalShares":3,"threshold":1},"address":"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",` +
		`"publicKey":"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G","shares":["1-abc","2-def","3-ghi"],"timestamp":1600000000000}`
	blob := legacyBlob(plaintext, "hunter2")

	want := NewDocument(
		secrets.Config{TotalShares: 3, Threshold: 1},
		"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",
		"5Hd3rbeKQBgQMAbSCpNGTBkKyhYKe8Wj1jUAxqV8nF6G",
		[]string{"1-abc", "2-def", "3-ghi"},
		time.UnixMilli(1600000000000),
	)
	decrypters := map[string]func(string, string) (*Document, error){
		"Legacy":  Legacy{}.Decrypt,
		"Decrypt": Decrypt,
	}
	for name, decrypt := range decrypters {
		got, err := decrypt(blob, "hunter2")
		if err != nil {
			t.Fatalf("%s() of a 1-of-3 backup failed: %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s() mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestLegacyRejectsImpossibleConfig(t *testing.T) {
	for _, cfg := range []string{
		`{"totalShares":3,"threshold":4}`,
		`{"totalShares":3,"threshold":0}`,
		`{"totalShares":0,"threshold":0}`,
	} {
		blob := legacyBlob(`{"config":`+cfg+`,"address":"a","publicKey":"a","shares":[],"timestamp":0}`, "pw")
		if _, err := (Legacy{}).Decrypt(blob, "pw"); !errors.Is(err, secrets.ErrDecryptionFailed) {
			t.Errorf("Decrypt() with config %s err = %v, want ErrDecryptionFailed", cfg, err)
		}
	}
}

func TestThresholdOneRoundTrip(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument(secrets.Config{TotalShares: 2, Threshold: 1}, "addr", "addr", []string{"1-abc", "2-def"}, time.UnixMilli(1))
			blob, err := c.Encrypt(doc, "pw")
			if err != nil {
				t.Fatalf("Encrypt() failed: %v", err)
			}
			got, err := c.Decrypt(blob, "pw")
			if err != nil {
				t.Fatalf("Decrypt() failed: %v", err)
			}
			if diff := cmp.Diff(doc, got); diff != "" {
				t.Errorf("Decrypt(Encrypt(doc)) mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncryptRejectsImpossibleConfig(t *testing.T) {
	for name, c := range ciphers() {
		t.Run(name, func(t *testing.T) {
			doc := NewDocument(secrets.Config{TotalShares: 2, Threshold: 3}, "addr", "addr", nil, time.UnixMilli(1))
			var cfgErr *secrets.ConfigError
			if _, err := c.Encrypt(doc, "pw"); !errors.As(err, &cfgErr) {
				t.Errorf("Encrypt() err = %v, want ConfigError", err)
			}
		})
	}
}

func TestNilSharesSerializeAsArray(t *testing.T) {
	doc := NewDocument(secrets.Config{TotalShares: 3, Threshold: 2}, "addr", "addr", nil, time.UnixMilli(1))
	b, err := marshalDocument(doc)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"shares":[]`) {
		t.Errorf("marshalDocument() = %s, want an empty shares array", b)
	}
}

func TestNewDocumentCopiesShares(t *testing.T) {
	shares := []string{"1-abc", "2-def"}
	doc := NewDocument(secrets.Config{TotalShares: 2, Threshold: 2}, "addr", "addr", shares, time.UnixMilli(1))
	shares[0] = "changed"
	if doc.Shares[0] != "1-abc" {
		t.Errorf("NewDocument() aliases the caller's slice: Shares[0] = %q", doc.Shares[0])
	}
}

func TestAEADDetectsTampering(t *testing.T) {
	c := &AEAD{Params: testParams}
	blob, err := c.Encrypt(testDocument(), "pw")
	if err != nil {
		t.Fatal(err)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, aeadPrefix))
	if err != nil {
		t.Fatal(err)
	}
	// Magic, version, salt, tink header, body, final tag.
	for _, i := range []int{0, 4, 14, 29, 30, len(raw) / 2, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		if _, err := c.Decrypt(aeadPrefix+base64.StdEncoding.EncodeToString(tampered), "pw"); !errors.Is(err, secrets.ErrDecryptionFailed) {
			t.Errorf("Decrypt() with byte %d flipped err = %v, want ErrDecryptionFailed", i, err)
		}
	}
}

func TestAEADSaltIsRandom(t *testing.T) {
	c := &AEAD{Params: testParams}
	a, err := c.Encrypt(testDocument(), "pw")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.Encrypt(testDocument(), "pw")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two encryptions of the same document are identical")
	}
}

func TestAEADRejectsBadParams(t *testing.T) {
	for _, p := range []KDFParams{
		{Time: 0, MemoryKB: 64, Threads: 1},
		{Time: 1, MemoryKB: 4, Threads: 1},
		{Time: 1, MemoryKB: 64, Threads: 0},
		{Time: maxKDFTime + 1, MemoryKB: 64, Threads: 1},
		{Time: 1, MemoryKB: maxKDFMemoryKB + 1, Threads: 1},
		{Time: 1, MemoryKB: 1024, Threads: maxKDFThreads + 1},
	} {
		c := &AEAD{Params: p}
		if _, err := c.Encrypt(testDocument(), "pw"); err == nil {
			t.Errorf("Encrypt() accepted argon2 params %+v", p)
		}
	}
}

func TestDefaultKDFParamsWithinBounds(t *testing.T) {
	if err := DefaultKDFParams().validate(); err != nil {
		t.Errorf("DefaultKDFParams() rejected: %v", err)
	}
}

// Decrypt must refuse costly parameters before deriving a key, so these
// blobs fail fast even though their ciphertext is empty.
func TestAEADRejectsCostlyHeader(t *testing.T) {
	for _, p := range []KDFParams{
		{Time: 3, MemoryKB: 1 << 20, Threads: 4},
		{Time: 1 << 16, MemoryKB: 64, Threads: 1},
		{Time: 3, MemoryKB: 64 * 1024, Threads: 255},
	} {
		header := backupHeader{
			Magic:    backupMagic,
			Version:  aeadVersion,
			Time:     p.Time,
			MemoryKB: p.MemoryKB,
			Threads:  p.Threads,
		}
		buf := &bytes.Buffer{}
		if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
			t.Fatal(err)
		}
		blob := aeadPrefix + base64.StdEncoding.EncodeToString(buf.Bytes())
		if _, err := (&AEAD{}).Decrypt(blob, "pw"); !errors.Is(err, secrets.ErrDecryptionFailed) {
			t.Errorf("Decrypt() with header params %+v err = %v, want ErrDecryptionFailed", p, err)
		}
	}
}

func TestDetect(t *testing.T) {
	if _, ok := Detect("sss2:AAAA").(*AEAD); !ok {
		t.Error("Detect() did not pick AEAD for a prefixed blob")
	}
	if _, ok := Detect("  sss2:AAAA\n").(*AEAD); !ok {
		t.Error("Detect() did not trim surrounding whitespace")
	}
	if _, ok := Detect("eyJjb25maWci").(Legacy); !ok {
		t.Error("Detect() did not pick Legacy for plain base64")
	}
}

func TestDocumentCreatedAt(t *testing.T) {
	if got, want := testDocument().CreatedAt(), time.UnixMilli(1700000000123); !got.Equal(want) {
		t.Errorf("CreatedAt() = %v, want %v", got, want)
	}
}
