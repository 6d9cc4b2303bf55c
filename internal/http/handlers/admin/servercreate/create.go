// Package servercreate реализует HTTP-обработчик добавления сервера доступа
// в пул балансировщика.
package servercreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс добавления сервера в пул.
type Service interface {
	CreateServer(ctx context.Context, server models.AccessServer) (int64, error)
}

// Handler обрабатывает запросы на добавление сервера.
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
// @Summary Добавить сервер
// @Description Добавляет сервер доступа в пул; capacity = null означает отсутствие лимита
// @Tags Admin
// @Accept  json
// @Produce  json
// @Param request body models.DummyServer true "Описание сервера"
// @Success 200 {object} response.Response "Сервер добавлен"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Администратор не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/servers [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.servercreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyServer
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

	// Новый сервер сразу активен и участвует в выборе балансировщика.
	server := models.AccessServer{
		Name:     req.Name,
		Address:  req.Address,
		Capacity: req.Capacity,
		Active:   true,
	}
	id, err := h.service.CreateServer(r.Context(), server)
	if err != nil {
		log.Error("failed to create server", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("success to create server",
		slog.Int64("server_id", id), slog.String("name", req.Name))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"server_id": id,
	}))
}
