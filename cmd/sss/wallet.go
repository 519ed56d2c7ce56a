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
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"flag"
	"github.com/a-khushal/sss/backup"
	"github.com/a-khushal/sss/config"
	"github.com/a-khushal/sss/shares"
	"github.com/a-khushal/sss/wallet"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	"sigs.k8s.io/yaml"
)

func newCipher(legacy bool) backup.Cipher {
	if legacy {
		glog.Warningf("The legacy backup format is not authenticated and offers little secrecy")
		return backup.Legacy{}
	}
	return backup.NewAEAD()
}

// backupCmd handles CLI options for the backup command.
type backupCmd struct {
	configFile   string
	passwordFile string
	legacy       bool
	address      string
	publicKey    string
	total        int
	threshold    int
	outFile      string
}

func (*backupCmd) Name() string { return "backup" }
func (*backupCmd) Synopsis() string {
	return "encrypts or decrypts a wallet backup document"
}
func (*backupCmd) Usage() string {
	return `Usage: sss backup --address=<address> [--password-file=<file>] [--legacy] encrypt [<shares_file>]
       sss backup [--password-file=<file>] [--legacy] decrypt [<backup_file>]

The backup document records the split configuration, the wallet address and
the shares, plain or sealed, one per input line. It never holds the private
key. The password is read from --password-file.

Decrypt detects the format; --legacy forces the legacy reader.

Examples:
  $ sss split --seal-to=alice,bob,carol wallet.key > sealed.txt
  $ sss backup --address=<address> --threshold=2 --total=3 encrypt sealed.txt > backup.txt
  $ sss backup decrypt backup.txt

Flags:
`
}
func (b *backupCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &b.configFile)
	f.StringVar(&b.passwordFile, "password-file", "", "File holding the backup password.")
	f.BoolVar(&b.legacy, "legacy", false, "Use the legacy XOR format.")
	f.StringVar(&b.address, "address", "", "Wallet address to record. Required for encrypt.")
	f.StringVar(&b.publicKey, "public-key", "", "Wallet public key to record. Defaults to the address.")
	f.IntVar(&b.total, "total", 0, "Total shares to record. Defaults to shares.total from the config.")
	f.IntVar(&b.threshold, "threshold", 0, "Threshold to record. Defaults to shares.threshold from the config.")
	f.StringVar(&b.outFile, "out", "-", "File to write the result to.")
}

func (b *backupCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	password, err := readPassword(b.passwordFile)
	if err != nil {
		glog.Errorf("Failed to read password: %v", err.Error())
		return subcommands.ExitFailure
	}

	switch f.Arg(0) {
	case "encrypt":
		return b.encrypt(f.Arg(1), password)
	case "decrypt":
		return b.decrypt(f.Arg(1), password)
	default:
		glog.Errorf("Expected encrypt or decrypt, got %q", f.Arg(0))
		return subcommands.ExitUsageError
	}
}

func (b *backupCmd) encrypt(input, password string) subcommands.ExitStatus {
	if b.address == "" {
		glog.Errorf("No wallet address given (use --address)")
		return subcommands.ExitFailure
	}
	cfg, err := config.Load(b.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	splitCfg := cfg.SplitConfig()
	if b.total > 0 {
		splitCfg.TotalShares = b.total
	}
	if b.threshold > 0 {
		splitCfg.Threshold = b.threshold
	}
	if err := splitCfg.Validate(); err != nil {
		glog.Errorf("Invalid split configuration: %v", err.Error())
		return subcommands.ExitFailure
	}

	lines, err := readLines(input)
	if err != nil {
		glog.Errorf("Failed to read shares: %v", err.Error())
		return subcommands.ExitFailure
	}
	var entries []string
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			entries = append(entries, l)
		}
	}

	publicKey := b.publicKey
	if publicKey == "" {
		publicKey = b.address
	}
	warnWeakPassword(password, b.address)
	doc := backup.NewDocument(splitCfg, b.address, publicKey, entries, time.Now())
	blob, err := newCipher(b.legacy).Encrypt(doc, password)
	if err != nil {
		glog.Errorf("Failed to encrypt backup: %v", err.Error())
		return subcommands.ExitFailure
	}
	return writeText(b.outFile, blob)
}

func (b *backupCmd) decrypt(input, password string) subcommands.ExitStatus {
	lines, err := readLines(input)
	if err != nil {
		glog.Errorf("Failed to read backup: %v", err.Error())
		return subcommands.ExitFailure
	}
	blob := strings.Join(strings.Fields(strings.Join(lines, "\n")), "")

	var doc *backup.Document
	if b.legacy {
		doc, err = backup.Legacy{}.Decrypt(blob, password)
	} else {
		doc, err = backup.Decrypt(blob, password)
	}
	if err != nil {
		glog.Errorf("Failed to decrypt backup: %v", err.Error())
		return subcommands.ExitFailure
	}

	yamlBytes, err := yaml.Marshal(doc)
	if err != nil {
		glog.Errorf("Failed to format backup: %v", err.Error())
		return subcommands.ExitFailure
	}
	return writeText(b.outFile, fmt.Sprintf("# created %s\n%s", doc.CreatedAt().UTC().Format(time.RFC3339), yamlBytes))
}

func writeText(name, text string) subcommands.ExitStatus {
	out, _, err := createOutput(name)
	if err != nil {
		glog.Errorf("Failed to open output file: %v", err.Error())
		return subcommands.ExitFailure
	}
	if out != os.Stdout {
		defer out.Close()
	}
	if _, err := fmt.Fprintln(out, strings.TrimRight(text, "\n")); err != nil {
		glog.Errorf("Failed to write output: %v", err.Error())
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// walletCmd handles CLI options for the wallet command.
type walletCmd struct {
	configFile   string
	total        int
	threshold    int
	keyFile      string
	backupFile   string
	passwordFile string
}

func (*walletCmd) Name() string { return "wallet" }
func (*walletCmd) Synopsis() string {
	return "creates a new wallet and splits its key"
}
func (*walletCmd) Usage() string {
	return `Usage: sss wallet [--total=<n>] [--threshold=<t>] [--key-file=<file>] [--backup-file=<file> --password-file=<file>] new

Generates an Ed25519 wallet, prints its address and the shares of its
private key. The private key itself is only written if --key-file is given.
With --backup-file, an encrypted backup document is written as well.

Flags:
`
}
func (w *walletCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &w.configFile)
	f.IntVar(&w.total, "total", 0, "Number of shares to create. Defaults to shares.total from the config.")
	f.IntVar(&w.threshold, "threshold", 0, "Shares needed to recover. Defaults to shares.threshold from the config.")
	f.StringVar(&w.keyFile, "key-file", "", "New file to write the private key to. Optional.")
	f.StringVar(&w.backupFile, "backup-file", "", "File to write an encrypted backup to. Optional.")
	f.StringVar(&w.passwordFile, "password-file", "", "File holding the backup password.")
}

func (w *walletCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.Arg(0) != "new" {
		glog.Errorf("Expected new, got %q", f.Arg(0))
		return subcommands.ExitUsageError
	}

	cfg, err := config.Load(w.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	splitCfg := cfg.SplitConfig()
	if w.total > 0 {
		splitCfg.TotalShares = w.total
	}
	if w.threshold > 0 {
		splitCfg.Threshold = w.threshold
	}

	wal, err := wallet.Generate()
	if err != nil {
		glog.Errorf("Failed to create wallet: %v", err.Error())
		return subcommands.ExitFailure
	}
	secret, err := wal.Secret()
	if err != nil {
		glog.Errorf("Failed to read wallet key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer clear(secret)

	lines, err := shares.Split(secret, splitCfg)
	if err != nil {
		glog.Errorf("Failed to split private key: %v", err.Error())
		return subcommands.ExitFailure
	}

	if w.keyFile != "" {
		out, err := os.OpenFile(w.keyFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			glog.Errorf("Failed to create private key file: %v", err.Error())
			return subcommands.ExitFailure
		}
		_, err = fmt.Fprintln(out, wal.PrivateKey)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			glog.Errorf("Failed to write private key file: %v", err.Error())
			return subcommands.ExitFailure
		}
	}

	if w.backupFile != "" {
		password, err := readPassword(w.passwordFile)
		if err != nil {
			glog.Errorf("Failed to read password: %v", err.Error())
			return subcommands.ExitFailure
		}
		warnWeakPassword(password, wal.Address)
		doc := backup.NewDocument(splitCfg, wal.Address, wal.PublicKey, lines, time.Now())
		blob, err := backup.NewAEAD().Encrypt(doc, password)
		if err != nil {
			glog.Errorf("Failed to encrypt backup: %v", err.Error())
			return subcommands.ExitFailure
		}
		if status := writeText(w.backupFile, blob); status != subcommands.ExitSuccess {
			return status
		}
	}

	fmt.Println("Address:", wal.Address)
	fmt.Printf("Shares (%v):\n", splitCfg)
	for _, l := range lines {
		fmt.Println(l)
	}
	return subcommands.ExitSuccess
}
