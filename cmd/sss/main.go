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

// This binary is the main entrypoint for the sss command line tool, which
// splits wallet keys into Shamir shares and recovers them.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"flag"
	"github.com/a-khushal/sss/config"
	glog "github.com/golang/glog"
	"github.com/google/subcommands"
	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	// The current version, displayed via the `version` subcommand.
	sssVersion string = "0.1.0"

	// zxcvbn score (0 to 4) below which a backup password draws a warning.
	minPasswordScore = 3
)

func defaultConfigPath() string {
	path, err := config.DefaultPath()
	if err != nil {
		glog.Errorf("Failed to get config directory location: %v", err.Error())
		return config.DefaultFileName
	}
	return path
}

func configFlag(f *flag.FlagSet, dst *string) {
	f.StringVar(dst, "config-file", defaultConfigPath(), "Path to an sss YAML config file. Optional.")
}

// openInput opens the named file, or stdin for "-" or an empty name.
func openInput(name string) (io.ReadCloser, error) {
	if name == "" || name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

// readLines returns every line of the input, blank lines included, so that
// positions in validation errors match the caller's line numbers.
func readLines(name string) ([]string, error) {
	in, err := openInput(name)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// readFirstLine returns the first non-blank line of the input, trimmed.
func readFirstLine(name string) (string, error) {
	lines, err := readLines(name)
	if err != nil {
		return "", err
	}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			return l, nil
		}
	}
	return "", fmt.Errorf("input is empty")
}

// readPassword reads the password from file, dropping the trailing newline.
func readPassword(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("no password given (use --password-file)")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// passwordScore rates password with zxcvbn, penalizing reuse of userInputs
// such as the wallet address.
func passwordScore(password string, userInputs ...string) int {
	return zxcvbn.PasswordStrength(password, userInputs).Score
}

func warnWeakPassword(password string, userInputs ...string) {
	if score := passwordScore(password, userInputs...); score < minPasswordScore {
		glog.Warningf("Backup password is weak (zxcvbn score %d of 4); anyone holding the backup can guess it offline", score)
	}
}

// createOutput returns stdout for "-" and a private file otherwise, plus the
// stream for human-readable notes.
func createOutput(name string) (out *os.File, logFile *os.File, err error) {
	if name == "" || name == "-" {
		return os.Stdout, os.Stderr, nil
	}
	out, err = os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return out, os.Stdout, nil
}

// versionCmd handles CLI options for the version command.
type versionCmd struct{}

func (*versionCmd) Name() string           { return "version" }
func (*versionCmd) Synopsis() string       { return "prints the current version" }
func (*versionCmd) Usage() string          { return "Usage: sss version" }
func (*versionCmd) SetFlags(*flag.FlagSet) {}
func (*versionCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	fmt.Printf("sss Version %s\n", sssVersion)
	return subcommands.ExitSuccess
}

func main() {
	flag.Parse()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&splitCmd{}, "shares")
	subcommands.Register(&combineCmd{}, "shares")
	subcommands.Register(&validateCmd{}, "shares")
	subcommands.Register(&keygenCmd{}, "guardians")
	subcommands.Register(&sealCmd{}, "guardians")
	subcommands.Register(&openCmd{}, "guardians")
	subcommands.Register(&backupCmd{}, "wallet")
	subcommands.Register(&walletCmd{}, "wallet")
	subcommands.Register(&selftestCmd{}, "")
	subcommands.Register(&versionCmd{}, "")

	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
