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
	"errors"
	"fmt"
	"os"
	"strings"

	"flag"
	"github.com/a-khushal/sss/config"
	"github.com/a-khushal/sss/shares"
	"github.com/a-khushal/sss/sharing/secrets"
	"github.com/a-khushal/sss/wallet"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
)

// splitCmd handles CLI options for the split command.
type splitCmd struct {
	configFile string
	total      int
	threshold  int
	sealTo     string
	outFile    string
	quiet      bool
}

func (*splitCmd) Name() string { return "split" }
func (*splitCmd) Synopsis() string {
	return "splits a wallet private key into shares"
}
func (*splitCmd) Usage() string {
	return `Usage: sss split [--total=<n>] [--threshold=<t>] [--seal-to=<guardian>,...] [--out=<file>] [<private_key_file>]

Reads a base58 private key (64-byte key or 32-byte seed) from the file, or
from stdin when no file or "-" is given, and prints one share per line.

Examples:
  Split using the defaults from the config file:
    $ sss split wallet.key

  Split 3-of-5 and seal each share to a guardian, in index order:
    $ sss split --total=5 --threshold=3 --seal-to=alice,bob,carol,dave,erin wallet.key

Flags:
`
}
func (s *splitCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &s.configFile)
	f.IntVar(&s.total, "total", 0, "Number of shares to create. Defaults to shares.total from the config.")
	f.IntVar(&s.threshold, "threshold", 0, "Shares needed to recover. Defaults to shares.threshold from the config.")
	f.StringVar(&s.sealTo, "seal-to", "", "Comma-separated guardian ids or names, one per share. Optional.")
	f.StringVar(&s.outFile, "out", "-", "File to write the shares to.")
	f.BoolVar(&s.quiet, "quiet", false, "Suppress informational output.")
}

func (s *splitCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(s.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	splitCfg := cfg.SplitConfig()
	if s.total > 0 {
		splitCfg.TotalShares = s.total
	}
	if s.threshold > 0 {
		splitCfg.Threshold = s.threshold
	}

	keyText, err := readFirstLine(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	w, err := wallet.FromPrivateKey(keyText)
	if err != nil {
		glog.Errorf("Invalid private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	secret, err := w.Secret()
	if err != nil {
		glog.Errorf("Invalid private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer clear(secret)

	lines, err := shares.Split(secret, splitCfg)
	if err != nil {
		glog.Errorf("Failed to split private key: %v", err.Error())
		return subcommands.ExitFailure
	}

	if s.sealTo != "" {
		lines, err = sealShares(cfg, lines, strings.Split(s.sealTo, ","))
		if err != nil {
			glog.Errorf("Failed to seal shares: %v", err.Error())
			return subcommands.ExitFailure
		}
	}

	out, logFile, err := createOutput(s.outFile)
	if err != nil {
		glog.Errorf("Failed to open file for shares: %v", err.Error())
		return subcommands.ExitFailure
	}
	if out != os.Stdout {
		defer out.Close()
	}

	for _, l := range lines {
		fmt.Fprintln(out, l)
	}

	if !s.quiet {
		fmt.Fprintf(logFile, "Split wallet %s into %v shares\n", w.Address, splitCfg)
	}
	return subcommands.ExitSuccess
}

// combineCmd handles CLI options for the combine command.
type combineCmd struct {
	configFile string
	threshold  int
	outFile    string
	quiet      bool
}

func (*combineCmd) Name() string { return "combine" }
func (*combineCmd) Synopsis() string {
	return "recovers a wallet private key from shares"
}
func (*combineCmd) Usage() string {
	return `Usage: sss combine [--threshold=<t>] [--out=<file>] [<shares_file>]

Reads one share per line from the file, or from stdin, and prints the
recovered base58 private key. Blank lines are ignored. All valid shares take
part in recovery.

Example:
  $ sss combine --threshold=3 - < three-shares.txt

Flags:
`
}
func (c *combineCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &c.configFile)
	f.IntVar(&c.threshold, "threshold", 0, "Shares needed to recover. Defaults to shares.threshold from the config.")
	f.StringVar(&c.outFile, "out", "-", "File to write the private key to.")
	f.BoolVar(&c.quiet, "quiet", false, "Suppress informational output.")
}

func (c *combineCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(c.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	threshold := cfg.Shares.Threshold
	if c.threshold > 0 {
		threshold = c.threshold
	}

	lines, err := readLines(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read shares: %v", err.Error())
		return subcommands.ExitFailure
	}

	secret, err := shares.Recover(lines, threshold, shares.WithMinPayloadLen(cfg.Shares.MinPayloadLength))
	if err != nil {
		glog.Errorf("Failed to recover private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer clear(secret)

	w, err := wallet.FromSecret(secret)
	if err != nil {
		glog.Errorf("Recovered secret is not a wallet key: %v", err.Error())
		return subcommands.ExitFailure
	}

	out, logFile, err := createOutput(c.outFile)
	if err != nil {
		glog.Errorf("Failed to open file for private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	if out != os.Stdout {
		defer out.Close()
	}

	fmt.Fprintln(out, w.PrivateKey)
	if !c.quiet {
		fmt.Fprintln(logFile, "Recovered wallet", w.Address)
	}
	return subcommands.ExitSuccess
}

// validateCmd handles CLI options for the validate command.
type validateCmd struct {
	configFile string
	threshold  int
}

func (*validateCmd) Name() string { return "validate" }
func (*validateCmd) Synopsis() string {
	return "checks shares before recovery"
}
func (*validateCmd) Usage() string {
	return `Usage: sss validate [--threshold=<t>] [<shares_file>]

Checks that enough shares are well formed to attempt recovery, without
recovering anything. Problems are reported by line number.

Flags:
`
}
func (v *validateCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &v.configFile)
	f.IntVar(&v.threshold, "threshold", 0, "Shares needed to recover. Defaults to shares.threshold from the config.")
}

func (v *validateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(v.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	threshold := cfg.Shares.Threshold
	if v.threshold > 0 {
		threshold = v.threshold
	}

	lines, err := readLines(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read shares: %v", err.Error())
		return subcommands.ExitFailure
	}

	result, err := shares.Validate(lines, threshold, shares.WithMinPayloadLen(cfg.Shares.MinPayloadLength))
	if err != nil {
		var insufficient *secrets.InsufficientValidSharesError
		if errors.As(err, &insufficient) {
			for _, failure := range insufficient.Failures {
				fmt.Println("  rejected", failure)
			}
		}
		glog.Errorf("Shares are not usable: %v", err.Error())
		return subcommands.ExitFailure
	}

	indices := make([]string, 0, len(result.Shares))
	for _, s := range result.Shares {
		indices = append(indices, fmt.Sprint(s.Index))
	}
	fmt.Printf("%d valid shares (indices %s), at least %d were issued\n", len(result.Shares), strings.Join(indices, ", "), result.EstimatedTotal)
	for _, failure := range result.Failures {
		fmt.Println("  ignored", failure)
	}
	return subcommands.ExitSuccess
}
