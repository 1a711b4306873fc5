// Package rolekey mints signer role tokens for operators.
package rolekey

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quorumsec/aegis/internal/governance/auth"
)

// Options controls token minting.
type Options struct {
	// Role is the signer role to assert.
	Role string
	// Secret is the shared signing secret, matching the governor's.
	Secret string
	// TTL bounds the token lifetime; zero uses the default.
	TTL time.Duration
}

// Run mints a role token and writes an export line for the caller's shell.
func Run(out io.Writer, opts Options) error {
	if out == nil {
		return errors.New("output is required")
	}
	if opts.Secret == "" {
		return errors.New("signing secret is required")
	}
	token, err := auth.MintRoleToken(opts.Role, auth.RoleTokenConfig{
		Secret: []byte(opts.Secret),
		TTL:    opts.TTL,
	})
	if err != nil {
		return fmt.Errorf("mint role token: %w", err)
	}
	if _, err := fmt.Fprintf(out, "export AEGIS_ROLE_TOKEN=%s\n", token); err != nil {
		return err
	}
	return nil
}
