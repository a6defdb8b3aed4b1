// Package connect provides the Connect RPC device service.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

const (
	// TokenHeader is the header name for the device control token.
	TokenHeader = "X-Device-Token"
)

// NewTokenInterceptor creates an interceptor that requires token on the
// given procedures. Other procedures pass through.
func NewTokenInterceptor(token string, procedures ...string) connect.UnaryInterceptorFunc {
	protected := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		protected[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !protected[req.Spec().Procedure] {
				return next(ctx, req)
			}

			got := req.Header().Get(TokenHeader)
			if got == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("missing token"))
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("invalid token"))
			}

			return next(ctx, req)
		}
	}
}
