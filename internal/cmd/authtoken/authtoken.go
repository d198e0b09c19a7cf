// Package authtoken parses token-minting flags and runs the one-shot tool.
//
// With -genkey it emits a fresh signing keypair; otherwise it mints a caller
// token for -address using the signer configured in the environment.
package authtoken

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/topstarwebking/fundlock/internal/fundlock/auth"
	"github.com/topstarwebking/fundlock/internal/fundlock/domain"
	entrypoint "github.com/topstarwebking/fundlock/internal/platform/cmd"
	"github.com/topstarwebking/fundlock/internal/tools/authkey"
)

// Config holds authtoken command configuration.
type Config struct {
	GenerateKey bool
	Address     string
}

// ParseConfig parses flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.BoolVar(&cfg.GenerateKey, "genkey", false, "Generate a signing keypair instead of minting a token")
	fs.StringVar(&cfg.Address, "address", "", "Caller address to mint a token for")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes the authtoken tool, writing its result to out.
func Run(_ context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}
	if cfg.GenerateKey {
		return authkey.Run(out, nil)
	}

	address := domain.NormalizeAddress(cfg.Address)
	if address == "" {
		return errors.New("-address is required when minting a token")
	}
	signer, err := auth.LoadSignerConfigFromEnv(nil)
	if err != nil {
		return err
	}
	token, err := auth.Issue(signer, address)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, token)
	return err
}
