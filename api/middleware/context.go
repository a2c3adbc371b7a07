package middleware

import "context"

type contextKey string

const ctxAddress contextKey = "wallet_address"

func AddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAddress).(string); ok {
		return v
	}
	return ""
}

// WithAddress injects the authenticated wallet address into the context.
func WithAddress(ctx context.Context, address string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxAddress, address)
}
