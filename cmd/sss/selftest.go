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

package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"flag"
	"github.com/a-khushal/sss/backup"
	"github.com/a-khushal/sss/guardian"
	"github.com/a-khushal/sss/shares"
	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/a-khushal/sss/sharing/shamir"
	"github.com/alecthomas/colour"
	"github.com/google/subcommands"
	"github.com/google/tink/go/subtle/random"
)

type selfTest struct {
	testName  string
	expectErr bool
	run       func() error
}

// splitSample splits 64 bytes of 0x01 into 5 shares with threshold 3.
func splitSample() ([]byte, []secrets.Share, error) {
	secret := bytes.Repeat([]byte{0x01}, 64)
	split, err := shamir.Split(secret, 5, 3)
	return secret, split, err
}

func combineSubset(indices ...int) error {
	secret, split, err := splitSample()
	if err != nil {
		return err
	}
	var subset []secrets.Share
	for _, i := range indices {
		subset = append(subset, split[i-1])
	}
	got, err := shamir.CombineThreshold(subset, 3)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, secret) {
		return fmt.Errorf("shares %v recovered the wrong secret", indices)
	}
	return nil
}

func textRoundTrip() error {
	secret := random.GetRandomBytes(shares.ExpandedKeyBytes)
	lines, err := shares.Split(secret, secrets.Config{TotalShares: 5, Threshold: 3})
	if err != nil {
		return err
	}
	got, err := shares.Recover([]string{lines[4], "", lines[0], lines[2]}, 3)
	if err != nil {
		return err
	}
	if !bytes.Equal(got, secret) {
		return fmt.Errorf("recovered the wrong secret")
	}
	return nil
}

func sealedShareRoundTrip(tamper bool) error {
	kp, err := guardian.GenerateKey()
	if err != nil {
		return err
	}
	share := secrets.Share{Index: 1, Payload: random.GetRandomBytes(64)}
	sealed, err := guardian.SealShare(share, kp.PublicKey[:])
	if err != nil {
		return err
	}
	if tamper {
		b := []byte(sealed)
		if b[len(b)-1] == '2' {
			b[len(b)-1] = '3'
		} else {
			b[len(b)-1] = '2'
		}
		sealed = string(b)
	}
	got, err := guardian.OpenShare(sealed, kp.PrivateKey[:])
	if err != nil {
		return err
	}
	if got.Index != share.Index || !bytes.Equal(got.Payload, share.Payload) {
		return fmt.Errorf("opened share differs from the sealed one")
	}
	return nil
}

func backupRoundTrip(c backup.Cipher, decryptPassword string) error {
	doc := backup.NewDocument(secrets.Config{TotalShares: 3, Threshold: 2}, "addr", "addr", []string{"1-a", "2-b", "3-c"}, time.Now())
	blob, err := c.Encrypt(doc, "password")
	if err != nil {
		return err
	}
	got, err := backup.Decrypt(blob, decryptPassword)
	if err != nil {
		return err
	}
	if got.Address != doc.Address || len(got.Shares) != len(doc.Shares) {
		return fmt.Errorf("decrypted document differs from the original")
	}
	return nil
}

func selfTests() []selfTest {
	fastAEAD := &backup.AEAD{Params: backup.KDFParams{Time: 1, MemoryKB: 1024, Threads: 1}}
	return []selfTest{
		{testName: "Shares 1, 3 and 5 recover the secret", run: func() error { return combineSubset(1, 3, 5) }},
		{testName: "Shares 2, 4 and 5 recover the secret", run: func() error { return combineSubset(2, 4, 5) }},
		{testName: "All five shares recover the secret", run: func() error { return combineSubset(1, 2, 3, 4, 5) }},
		{testName: "Two of three required shares are rejected", expectErr: true, run: func() error { return combineSubset(1, 2) }},
		{testName: "Repeated share is rejected", expectErr: true, run: func() error { return combineSubset(1, 1, 2) }},
		{testName: "Text shares survive blanks and reordering", run: textRoundTrip},
		{testName: "Sealed share opens with the guardian key", run: func() error { return sealedShareRoundTrip(false) }},
		{testName: "Tampered sealed share is rejected", expectErr: true, run: func() error { return sealedShareRoundTrip(true) }},
		{testName: "Authenticated backup round trip", run: func() error { return backupRoundTrip(fastAEAD, "password") }},
		{testName: "Authenticated backup rejects wrong password", expectErr: true, run: func() error { return backupRoundTrip(fastAEAD, "wrong") }},
		{testName: "Legacy backup round trip", run: func() error { return backupRoundTrip(backup.Legacy{}, "password") }},
		{testName: "Legacy backup rejects wrong password", expectErr: true, run: func() error { return backupRoundTrip(backup.Legacy{}, "wrong") }},
	}
}

// selftestCmd handles CLI options for the selftest command.
type selftestCmd struct{}

func (*selftestCmd) Name() string { return "selftest" }
func (*selftestCmd) Synopsis() string {
	return "checks the sharing, sealing and backup primitives"
}
func (*selftestCmd) Usage() string          { return "Usage: sss selftest\n" }
func (*selftestCmd) SetFlags(*flag.FlagSet) {}

func (*selftestCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Println("Running self tests...")

	status := subcommands.ExitSuccess
	for _, testCase := range selfTests() {
		err := testCase.run()
		testPassed := testCase.expectErr == (err != nil)
		if testPassed {
			colour.Printf("^2 - %v^R\n", testCase.testName)
		} else {
			colour.Printf("^1 - %v: %v^R\n", testCase.testName, err)
			status = subcommands.ExitFailure
		}
	}
	return status
}
