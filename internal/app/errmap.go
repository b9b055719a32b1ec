package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/cadence/internal/async"
	"github.com/example/cadence/internal/core/rule"
	"github.com/example/cadence/internal/ports/secondary"
)

// mapOpError translates coordinator and store errors into the coded
// taxonomy. Errors already in the taxonomy pass through unchanged.
func mapOpError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case rule.KindOf(err) != rule.KindUnknown:
		return err
	case errors.Is(err, async.ErrCancelled), errors.Is(err, context.Canceled):
		return rule.NewCancelled(id)
	case errors.Is(err, async.ErrTimeout):
		return rule.NewError(rule.KindTimeout, fmt.Sprintf("operation %s timed out", id))
	case errors.Is(err, secondary.ErrNotFound):
		return rule.NewNotFound(id)
	default:
		return rule.WrapStorage(err, fmt.Sprintf("operation %s failed", id))
	}
}
