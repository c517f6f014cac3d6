package middleware

import (
	"context"
	"net/http"

	"github.com/mano-sesan/mano-stats/internal/personloader"
	"github.com/mano-sesan/mano-stats/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const personLoaderKey ctxKey = "personLoader"

// DataLoaderMiddleware attaches a dataloader to the request context
func DataLoaderMiddleware(repo repository.PersonRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Create the person loader
			loader := personloader.NewPersonLoader(repo)

			// Store the underlying dataloader.Loader in context
			ctx := ContextWithPersonLoader(r.Context(), loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ContextWithPersonLoader attaches a loader directly, for callers outside
// the HTTP middleware chain (tests, background jobs).
func ContextWithPersonLoader(ctx context.Context, loader *dataloader.Loader) context.Context {
	return context.WithValue(ctx, personLoaderKey, loader)
}

// PersonLoaderFromContext retrieves the dataloader from context
func PersonLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(personLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
