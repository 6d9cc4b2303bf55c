// Package serverupdate реализует HTTP-обработчик частичного обновления
// сервера доступа: активность и вместимость.
//
// Деактивация сервера не трогает существующие привязки: пользователей
// перенесёт балансировщик при следующей проверке их доступа.
package serverupdate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс обновления сервера в пуле.
type Service interface {
	UpdateServer(ctx context.Context, id int64, req models.DummyServerUpdate) (int, error)
}

// Handler обрабатывает запросы на обновление сервера.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Хранилище пула серверов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Обновить сервер
// @Description Меняет активность и вместимость сервера, отсутствующие поля не изменяются; unlimited=true снимает лимит вместимости
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param id path int true "ID сервера"
// @Param request body models.DummyServerUpdate true "Изменяемые поля"
// @Success 200 {object} response.Response "Сервер обновлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или ID"
// @Failure 401 {object} response.ErrorResponse "Администратор не авторизован"
// @Failure 404 {object} response.ErrorResponse "Сервер не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/servers/{id} [patch]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.serverupdate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Error("failed to decode id from url", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("failed to decode id from url"))
		return
	}

	var req models.DummyServerUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	if req.Capacity != nil && req.Unlimited != nil && *req.Unlimited {
		log.Error("conflicting capacity fields in request")
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("capacity and unlimited are mutually exclusive"))
		return
	}

	affected, err := h.service.UpdateServer(r.Context(), id, req)
	if err != nil {
		log.Error("failed to update server", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}
	if affected == 0 {
		log.Error("server not found", slog.Int64("server_id", id))
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("server not found"))
		return
	}

	log.Info("success to update server", slog.Int64("server_id", id))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"updated_count": affected,
	}))
}
