// Package status реализует HTTP-обработчик для получения статуса доступа
// текущего пользователя: активен ли он, до какой даты и на каком сервере.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс бизнес-логики получения статуса доступа.
type Service interface {
	Status(ctx context.Context, userUID string) (*models.AccessStatus, error)
}

// Handler обрабатывает запросы на получение статуса доступа.
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
// @Summary Статус доступа
// @Description Возвращает активность доступа, срок его действия и назначенный сервер
// @Tags Access
// @Produce  json
// @Success 200 {object} response.Response "Статус доступа"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /access/status [get]
// @Security IdentityToken
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.access.status"

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

	accessStatus, err := h.service.Status(r.Context(), userUID)
	if err != nil {
		log.Error("failed to read access status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("success to read access status",
		slog.String("user_uid", userUID), slog.Bool("active", accessStatus.Active))
	render.JSON(w, r, response.StatusOKWithData(accessStatus))
}
