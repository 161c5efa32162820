package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/deploykit/internal/config"
	"github.com/edvin/deploykit/internal/logging"
	"github.com/edvin/deploykit/internal/shell"
	"github.com/edvin/deploykit/internal/state"
)

// infoTags are the infrastructure_info fields deployctl knows how to print.
var infoTags = []string{
	"group",
	"project",
	"zone",
	"azure_subscription_id",
	"azure_app_id",
	"azure_app_secret_key",
	"azure_tenant_id",
	"azure_resource_group",
	"azure_storage_account",
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg)

	switch os.Args[1] {
	case "info":
		cmdInfo(cfg, logger, os.Args[2:])
	case "upgrade":
		cmdUpgrade(cfg, logger, os.Args[2:])
	case "keygen":
		cmdKeygen(cfg, logger, os.Args[2:])
	case "run":
		cmdRun(cfg, logger, os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func cmdInfo(cfg *config.Config, logger zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	keyname := fs.String("keyname", "", "Deployment keyname (required)")
	tag := fs.String("tag", "", "Infrastructure option to print (default: all known options)")
	fs.Parse(args)

	if *keyname == "" {
		fmt.Fprintln(os.Stderr, "Error: -keyname flag is required")
		fs.Usage()
		os.Exit(1)
	}

	store := newStore(cfg, logger)

	if *tag != "" {
		value, err := store.InfrastructureOption(*keyname, *tag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(value)
		return
	}

	for _, t := range infoTags {
		value, err := store.InfrastructureOption(*keyname, t)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if value != "" {
			fmt.Printf("%s: %s\n", t, value)
		}
	}
}

func cmdUpgrade(cfg *config.Config, logger zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("upgrade", flag.ExitOnError)
	keyname := fs.String("keyname", "", "Deployment keyname (required)")
	fs.Parse(args)

	if *keyname == "" {
		fmt.Fprintln(os.Stderr, "Error: -keyname flag is required")
		fs.Usage()
		os.Exit(1)
	}

	store := newStore(cfg, logger)
	if err := store.Upgrade(*keyname); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Locations file for %q is now in the unified format\n", *keyname)
}

func cmdKeygen(cfg *config.Config, logger zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	keyname := fs.String("keyname", "", "Deployment keyname (default: a random one)")
	verbose := fs.Bool("v", false, "Log the commands being executed")
	fs.Parse(args)

	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}
	if *keyname == "" {
		*keyname = state.RandomKeyname()
	}

	store := newStore(cfg, logger)
	if err := store.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	runner := newRunner(cfg, logger)
	pub, priv, err := store.GenerateRSAKey(context.Background(), runner, *keyname)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Keyname:     %s\n", *keyname)
	fmt.Printf("Public key:  %s\n", pub)
	fmt.Printf("Private key: %s\n", priv)
}

func cmdRun(cfg *config.Config, logger zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	retries := fs.Int("retries", 0, "Override the configured attempt count")
	verbose := fs.Bool("v", false, "Log the command and its output buffers")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: deployctl run [-retries N] [-v] <command...>")
		os.Exit(1)
	}
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	command := strings.Join(fs.Args(), " ")
	runner := newRunner(cfg, logger)

	var opts []shell.RunOption
	if *retries > 0 {
		opts = append(opts, shell.WithAttempts(*retries))
	}

	output, err := runner.Run(context.Background(), command, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(output)
}

func newStore(cfg *config.Config, logger zerolog.Logger) *state.Store {
	dir := cfg.ConfigDir
	if dir == "" {
		var err error
		dir, err = state.DefaultDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	return state.NewStore(logger, dir)
}

func newRunner(cfg *config.Config, logger zerolog.Logger) *shell.Runner {
	return shell.NewRunner(logger, shell.Options{
		MaxAttempts: cfg.ShellMaxAttempts,
		Backoff:     cfg.ShellBackoff,
		Shell:       cfg.ShellBin,
	})
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: deployctl <command> [options]

Commands:
  info     -keyname K [-tag T]   Print infrastructure options for a deployment
  upgrade  -keyname K            Migrate legacy locations files to the unified format
  keygen   [-keyname K] [-v]     Generate the deployment's RSA keypair
  run      [-retries N] [-v] <command...>
                                 Run a shell command with the retry policy`)
}
