package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/revtax/internal/shared"
)

// TokenOptions defines the flags of the token command.
type TokenOptions struct {
	OwnerID int64
	Email   string
	Stdout  io.Writer
	Stderr  io.Writer
}

// TokenCommand prints a signed bearer token for an owner and returns the
// process exit code.
func TokenCommand(tokens *shared.TokenManager, opts TokenOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.OwnerID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "token: --owner is required and must be positive")
		return 1
	}
	token, err := tokens.Issue(opts.OwnerID, opts.Email)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "token: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(opts.Stdout, token)
	return 0
}
