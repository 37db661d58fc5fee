// Package requestctx carries per-request identity and locale through context.
package requestctx

import "context"

type senderContextKey struct{}

type localeContextKey struct{}

// WithSender stores the authenticated transaction sender address in context.
func WithSender(ctx context.Context, sender string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, senderContextKey{}, sender)
}

// SenderFromContext returns the sender address stored in context.
func SenderFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(senderContextKey{}).(string)
	return value
}

// WithLocale stores the caller's preferred locale for error messages.
func WithLocale(ctx context.Context, locale string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, localeContextKey{}, locale)
}

// LocaleFromContext returns the preferred locale, or "" when none was set.
func LocaleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(localeContextKey{}).(string)
	return value
}
