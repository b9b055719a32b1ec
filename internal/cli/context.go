// Package cli defines the cobra commands. Commands are constructed against
// an assembled wire.App; there is no package-level service state.
package cli

import (
	"context"
	"os"

	"github.com/example/cadence/internal/ctxutil"
)

// commandContext returns the base context for a command invocation, with
// the invoking user recorded as audit actor.
func commandContext() context.Context {
	return ctxutil.WithActorID(context.Background(), os.Getenv("USER"))
}
