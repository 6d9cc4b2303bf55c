// Package cancel реализует HTTP-обработчик отмены доступа.
//
// Отмена выставляет срок действия в прошлое, запись в леджере сохраняется:
// следующая покупка начнёт отсчёт от текущего момента, а не от старой даты.
package cancel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс бизнес-логики отмены доступа.
type Service interface {
	Cancel(ctx context.Context, userUID string) error
}

// Handler обрабатывает запросы на отмену доступа.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис леджера доступов
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Отменить доступ
// @Description Немедленно прекращает доступ пользователя, история тарифа сохраняется
// @Tags Access
// @Produce  json
// @Success 200 {object} response.Response "Доступ отменен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "У пользователя нет доступа"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /access/cancel [post]
// @Security IdentityToken
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.cancel"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Cancel(r.Context(), userUID); err != nil {
		if errors.Is(err, models.ErrNoEntitlement) {
			log.Error("entitlement not found", slog.String("user_uid", userUID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("entitlement not found"))
			return
		}
		log.Error("failed to cancel entitlement", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("success to cancel entitlement", slog.String("user_uid", userUID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"cancelled": true,
	}))
}
