// Package main provides a one-shot utility for caller token management.
//
// It mints bearer tokens for the fundlock API and generates signing keys.
package main

import (
	"context"
	"flag"
	"os"

	authtokencmd "github.com/topstarwebking/fundlock/internal/cmd/authtoken"
	"github.com/topstarwebking/fundlock/internal/platform/config"
)

func main() {
	cfg, err := authtokencmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := authtokencmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("authtoken: %v", err)
	}
}
