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

	"flag"
	"github.com/a-khushal/sss/config"
	"github.com/a-khushal/sss/guardian"
	"github.com/a-khushal/sss/shares"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
)

// sealShares seals the i-th share to the i-th guardian. Each output line is
// the guardian name followed by the sealed share.
func sealShares(cfg *config.Config, lines []string, guardians []string) ([]string, error) {
	if len(guardians) != len(lines) {
		return nil, fmt.Errorf("got %d guardians for %d shares", len(guardians), len(lines))
	}
	sealed := make([]string, 0, len(lines))
	for i, line := range lines {
		g, err := cfg.Guardian(strings.TrimSpace(guardians[i]))
		if err != nil {
			return nil, err
		}
		s, err := sealShareTo(g, line)
		if err != nil {
			return nil, err
		}
		sealed = append(sealed, g.Name+" "+s)
	}
	return sealed, nil
}

func sealShareTo(g *config.Guardian, line string) (string, error) {
	key, err := g.Key()
	if err != nil {
		return "", err
	}
	share, err := shares.Decode(line)
	if err != nil {
		return "", err
	}
	return guardian.SealShare(share, key[:])
}

// keygenCmd handles CLI options for the keygen command.
type keygenCmd struct {
	configFile string
	name       string
	keyFile    string
	noSave     bool
}

func (*keygenCmd) Name() string { return "keygen" }
func (*keygenCmd) Synopsis() string {
	return "creates a guardian key pair"
}
func (*keygenCmd) Usage() string {
	return `Usage: sss keygen --name=<name> [--key-file=<file>] [--no-save]

Creates a key pair for a guardian, writes the private key to a new file and
registers the public key in the config file under a fresh id.

Example:
  $ sss keygen --name=alice --key-file=alice.key

Flags:
`
}
func (k *keygenCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &k.configFile)
	f.StringVar(&k.name, "name", "", "Guardian name. Required.")
	f.StringVar(&k.keyFile, "key-file", "", "File to create for the private key. Defaults to <name>.key.")
	f.BoolVar(&k.noSave, "no-save", false, "Print the public key without adding it to the config file.")
}

func (k *keygenCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if k.name == "" {
		glog.Errorf("No guardian name given (use --name)")
		return subcommands.ExitFailure
	}
	keyFile := k.keyFile
	if keyFile == "" {
		keyFile = k.name + ".key"
	}

	cfg, err := config.Load(k.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}

	kp, err := guardian.GenerateKey()
	if err != nil {
		glog.Errorf("Failed to generate key: %v", err.Error())
		return subcommands.ExitFailure
	}

	g, err := cfg.AddGuardian(k.name, kp.PublicKeyString())
	if err != nil {
		glog.Errorf("Failed to register guardian: %v", err.Error())
		return subcommands.ExitFailure
	}

	out, err := os.OpenFile(keyFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		glog.Errorf("Failed to create private key file: %v", err.Error())
		return subcommands.ExitFailure
	}
	_, err = fmt.Fprintln(out, kp.PrivateKeyString())
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		glog.Errorf("Failed to write private key file: %v", err.Error())
		return subcommands.ExitFailure
	}

	if !k.noSave {
		if err := cfg.Save(k.configFile); err != nil {
			glog.Errorf("Failed to save config: %v", err.Error())
			return subcommands.ExitFailure
		}
	}

	fmt.Println("Guardian:", g.Name)
	fmt.Println("ID:", g.ID)
	fmt.Println("Public key:", g.PublicKey)
	fmt.Println("Wrote private key to", keyFile)
	return subcommands.ExitSuccess
}

// sealCmd handles CLI options for the seal command.
type sealCmd struct {
	configFile string
	guardian   string
}

func (*sealCmd) Name() string { return "seal" }
func (*sealCmd) Synopsis() string {
	return "seals shares to a guardian's public key"
}
func (*sealCmd) Usage() string {
	return `Usage: sss seal --guardian=<id_or_name> [<shares_file>]

Seals every share in the input to one guardian. Only the guardian's private
key can open the result.

Flags:
`
}
func (s *sealCmd) SetFlags(f *flag.FlagSet) {
	configFlag(f, &s.configFile)
	f.StringVar(&s.guardian, "guardian", "", "Guardian id or name from the config file. Required.")
}

func (s *sealCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.Load(s.configFile)
	if err != nil {
		glog.Errorf("Failed to load config: %v", err.Error())
		return subcommands.ExitFailure
	}
	g, err := cfg.Guardian(s.guardian)
	if err != nil {
		glog.Errorf("Unknown guardian: %v", err.Error())
		return subcommands.ExitFailure
	}

	lines, err := readLines(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read shares: %v", err.Error())
		return subcommands.ExitFailure
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sealed, err := sealShareTo(g, line)
		if err != nil {
			glog.Errorf("Failed to seal line %d: %v", i+1, err.Error())
			return subcommands.ExitFailure
		}
		fmt.Println(g.Name, sealed)
	}
	return subcommands.ExitSuccess
}

// openCmd handles CLI options for the open command.
type openCmd struct {
	keyFile string
}

func (*openCmd) Name() string { return "open" }
func (*openCmd) Synopsis() string {
	return "opens shares sealed to a guardian"
}
func (*openCmd) Usage() string {
	return `Usage: sss open --key-file=<file> [<sealed_shares_file>]

Opens sealed shares with the guardian's private key and prints them in plain
share form. A line may be the sealed share alone or "<name> <sealed share>"
as printed by split and seal.

Flags:
`
}
func (o *openCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&o.keyFile, "key-file", "", "File holding the guardian private key. Required.")
}

func (o *openCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if o.keyFile == "" {
		glog.Errorf("No private key file given (use --key-file)")
		return subcommands.ExitFailure
	}
	keyText, err := readFirstLine(o.keyFile)
	if err != nil {
		glog.Errorf("Failed to read private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	key, err := guardian.ParseKey(keyText, "guardian private key")
	if err != nil {
		glog.Errorf("Invalid private key: %v", err.Error())
		return subcommands.ExitFailure
	}
	defer clear(key[:])

	lines, err := readLines(f.Arg(0))
	if err != nil {
		glog.Errorf("Failed to read sealed shares: %v", err.Error())
		return subcommands.ExitFailure
	}
	for i, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		share, err := guardian.OpenShare(fields[len(fields)-1], key[:])
		if err != nil {
			glog.Errorf("Failed to open line %d: %v", i+1, err.Error())
			return subcommands.ExitFailure
		}
		fmt.Println(shares.Encode(share))
	}
	return subcommands.ExitSuccess
}
