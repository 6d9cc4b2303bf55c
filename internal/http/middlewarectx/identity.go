package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/identity"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// IdentityVerifier описывает интерфейс проверки identity-токена.
type IdentityVerifier interface {
	Verify(token string) (*models.Identity, error)
}

// UserRegistry описывает контракт регистрации пользователя при первом обращении.
type UserRegistry interface {
	UpsertUser(ctx context.Context, user models.User) error
}

// IdentityMiddleware возвращает HTTP middleware, который проверяет подписанный
// identity-токен в заголовке X-Identity-Token.
//
// При валидном токене пользователь регистрируется в базе, а его uid и label
// добавляются в контекст запроса. Невалидный токен даёт 401 Unauthorized.
func IdentityMiddleware(verifier IdentityVerifier, users UserRegistry, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.IdentityMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := r.Header.Get("X-Identity-Token")
			if token == "" {
				log.Error("missing identity token")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing identity token"))
				return
			}

			id, err := verifier.Verify(token)
			if err != nil {
				if errors.Is(err, identity.ErrInvalidToken) {
					log.Error("invalid identity token", sl.Err(err))
					render.Status(r, http.StatusUnauthorized)
					render.JSON(w, r, response.Error("invalid identity token"))
					return
				}
				log.Error("failed to verify identity token", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal server error"))
				return
			}

			user := models.User{UID: id.UserUID, Label: id.Label, Email: id.Email}
			if err := users.UpsertUser(r.Context(), user); err != nil {
				log.Error("failed to register user", sl.Err(err))
				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.Error("internal server error"))
				return
			}

			ctx := context.WithValue(r.Context(), UserUID, id.UserUID)
			ctx = context.WithValue(ctx, UserLabel, id.Label)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
