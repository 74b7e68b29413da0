// Package keytool implements the operator commands for deployment secrets:
// generating a wrapped pair for the Enc config section, unwrapping one for
// inspection and deriving a master pair from a passphrase.
package keytool

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/loremgate/internal/common"
	"github.com/dmitrijs2005/loremgate/internal/cryptox"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

const usage = `usage: keytool <command> [flags]

commands:
  gen      generate a deployment secret wrapped under the master pair
  unwrap   decrypt a wrapped deployment secret
  derive   derive a master pair from a passphrase
`

type masterFlags struct {
	key, iv, salt string
	newMaster     bool
}

func (m *masterFlags) register(fs *flag.FlagSet, allowNew bool) {
	fs.StringVar(&m.key, "master-key", "", "base64 master key")
	fs.StringVar(&m.iv, "master-iv", "", "base64 master iv")
	fs.StringVar(&m.salt, "salt", "", "salt for a passphrase-derived master (prompts for the passphrase)")
	if allowNew {
		fs.BoolVar(&m.newMaster, "new-master", false, "generate a random master pair and print it too")
	}
}

func (m *masterFlags) resolve(stderr io.Writer) (cryptox.KeyPair, error) {
	switch {
	case m.newMaster:
		return cryptox.GenerateKeyPair(), nil
	case m.key != "" || m.iv != "":
		if m.key == "" || m.iv == "" {
			return cryptox.KeyPair{}, errors.New("-master-key and -master-iv go together")
		}
		return cryptox.KeyPair{Key: m.key, IV: m.iv}, nil
	case m.salt != "":
		return promptMaster(m.salt, stderr)
	default:
		return cryptox.KeyPair{}, errors.New("no master given: use -master-key/-master-iv, -salt or -new-master")
	}
}

func promptMaster(salt string, stderr io.Writer) (cryptox.KeyPair, error) {
	fmt.Fprint(stderr, "Master passphrase: ")
	pass, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	if err != nil {
		return cryptox.KeyPair{}, fmt.Errorf("read passphrase: %w", err)
	}
	defer common.WipeByteArray(pass)
	if len(pass) == 0 {
		return cryptox.KeyPair{}, errors.New("empty passphrase")
	}
	return cryptox.MasterFromPassphrase(pass, []byte(salt)), nil
}

type genOutput struct {
	Enc    cryptox.WrappedSecret `json:"Enc"`
	Master *cryptox.KeyPair      `json:"Master,omitempty"`
}

// Run executes one keytool command and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "gen":
		err = runGen(args[1:], stdout, stderr)
	case "unwrap":
		err = runUnwrap(args[1:], stdout, stderr)
	case "derive":
		err = runDerive(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "keytool:", err)
		return 1
	}
	return 0
}

func runGen(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var m masterFlags
	m.register(fs, true)
	if err := fs.Parse(args); err != nil {
		return err
	}

	master, err := m.resolve(stderr)
	if err != nil {
		return err
	}
	w, err := cryptox.NewWrappedSecret(master)
	if err != nil {
		return err
	}

	out := genOutput{Enc: w}
	if m.newMaster {
		out.Master = &master
	}
	return writeJSON(stdout, out)
}

func runUnwrap(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("unwrap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var m masterFlags
	m.register(fs, false)
	encKey := fs.String("enc-key", "", "wrapped deployment key")
	encIV := fs.String("enc-iv", "", "wrapped deployment iv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *encKey == "" || *encIV == "" {
		return errors.New("-enc-key and -enc-iv are required")
	}

	master, err := m.resolve(stderr)
	if err != nil {
		return err
	}
	pair, err := cryptox.UnwrapKeyPair(cryptox.WrappedSecret{Key: *encKey, IV: *encIV}, master)
	if err != nil {
		return err
	}
	return writeJSON(stdout, pair)
}

func runDerive(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("derive", flag.ContinueOnError)
	fs.SetOutput(stderr)
	salt := fs.String("salt", "", "salt (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *salt == "" {
		return errors.New("-salt is required")
	}

	master, err := promptMaster(*salt, stderr)
	if err != nil {
		return err
	}
	return writeJSON(stdout, master)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
