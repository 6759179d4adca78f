package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/HerbHall/fleetmap/internal/auth"
)

// runToken prints a WebSocket token for one tenant, signed with the
// configured auth.ws_secret.
func runToken(args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	tenant := fs.String("tenant", "", "tenant the token grants access to")
	subject := fs.String("subject", "cli", "token subject")
	ttl := fs.Duration("ttl", 0, "token lifetime (default auth.ws_token_ttl)")
	_ = fs.Parse(args)

	if *tenant == "" {
		fmt.Fprintln(os.Stderr, "usage: fleetmap token [-config path] -tenant id [-ttl 12h]")
		os.Exit(2)
	}

	viperCfg, logger, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	secret := viperCfg.GetString("auth.ws_secret")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "auth.ws_secret is not set; the server would not accept this token")
		os.Exit(1)
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = viperCfg.GetDuration("auth.ws_token_ttl")
	}

	token, err := auth.NewTokenService([]byte(secret), lifetime).Issue(*tenant, *subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
