package authorization

import (
	"context"

	"github.com/smallbiznis/tirta/internal/apperror"
)

// Service answers whether the actor carried by ctx may perform a privileged
// billing operation.
type Service interface {
	Authorize(ctx context.Context, object string, action string) error
}

var (
	ErrUnauthenticated = apperror.Unauthorized("unauthenticated")
	ErrForbidden       = apperror.Unauthorized("forbidden")
	ErrInvalidObject   = apperror.Validation("invalid_object", "object")
	ErrInvalidAction   = apperror.Validation("invalid_action", "action")
)
