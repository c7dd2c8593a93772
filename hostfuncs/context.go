package hostfuncs

import "context"

type importKey struct{}

// withImport returns a context naming the import being served.
func withImport(ctx context.Context, imp Import) context.Context {
	return context.WithValue(ctx, importKey{}, imp)
}

// ImportFromContext returns the import an ImportRegistry is dispatching.
// Handlers and middleware invoked through Invoke always find one.
func ImportFromContext(ctx context.Context) (Import, bool) {
	imp, ok := ctx.Value(importKey{}).(Import)
	return imp, ok
}
