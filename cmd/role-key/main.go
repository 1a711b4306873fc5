// Package main provides a one-shot utility for minting signer role tokens.
package main

import (
	"flag"
	"os"

	"github.com/quorumsec/aegis/internal/platform/config"
	"github.com/quorumsec/aegis/internal/tools/rolekey"
)

func main() {
	role := flag.String("role", "", "Signer role to assert")
	secret := flag.String("secret", os.Getenv("AEGIS_GOVERNOR_AUTH_SECRET"), "Role token signing secret")
	ttl := flag.Duration("ttl", 0, "Token lifetime (default 12h)")
	flag.Parse()

	err := rolekey.Run(os.Stdout, rolekey.Options{
		Role:   *role,
		Secret: *secret,
		TTL:    *ttl,
	})
	if err != nil {
		config.Exitf("mint role token: %v", err)
	}
}
