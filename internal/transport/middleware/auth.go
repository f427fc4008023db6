package middleware

import (
	"context"
	"net/http"

	"github.com/frahmantamala/learning-platform/internal"
	"github.com/frahmantamala/learning-platform/internal/transport"
	"github.com/frahmantamala/learning-platform/pkg/logger"
)

type Authorizer interface {
	Authorize(ctx context.Context, tokenString string) (internal.Learner, error)
}

// Authenticate rejects requests without a valid learner token and attaches the learner
// to the request context and logger.
func Authenticate(authorizer Authorizer, base *transport.BaseHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			learner, err := authorizer.Authorize(r.Context(), base.ExtractTokenFromHeader(r))
			if err != nil {
				logger.From(r.Context()).Warn("request rejected by auth", "error", err, "path", r.URL.Path)
				base.HandleError(w, err)
				return
			}

			ctx := internal.ContextWithLearner(r.Context(), learner)
			ctx = logger.With(ctx, "learner_id", learner.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
