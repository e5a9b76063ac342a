package reqctx

import "context"

type ctxKey int

const (
	keyRequestMeta ctxKey = iota
	keyClaims
)

// RequestMeta is what the request-id middleware records for every HTTP
// request. Audit lines carry both fields.
type RequestMeta struct {
	RequestID string
	ClientIP  string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, keyRequestMeta, meta)
}

// RequestMetaFromContext reports false outside an HTTP request, e.g. in CLI
// commands and the NATS notifier.
func RequestMetaFromContext(ctx context.Context) (RequestMeta, bool) {
	meta, ok := ctx.Value(keyRequestMeta).(RequestMeta)
	return meta, ok
}

func RequestIDFromContext(ctx context.Context) string {
	meta, _ := RequestMetaFromContext(ctx)
	return meta.RequestID
}
