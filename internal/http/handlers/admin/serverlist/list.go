// Package serverlist реализует HTTP-обработчик для просмотра пула серверов
// доступа вместе с текущей занятостью.
package serverlist

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс чтения пула серверов.
type Service interface {
	ListServersWithOccupancy(ctx context.Context) ([]*models.ServerOccupancy, error)
}

// Handler обрабатывает запросы на просмотр пула серверов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Хранилище пула серверов
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// serverView — представление сервера в административном списке.
type serverView struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Capacity  *int   `json:"capacity"`
	Active    bool   `json:"active"`
	Occupancy int    `json:"occupancy"`
}

// ServeHTTP godoc
// @Summary Пул серверов
// @Description Возвращает все серверы доступа с вместимостью и текущей занятостью
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Пул серверов"
// @Failure 401 {object} response.ErrorResponse "Администратор не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/servers [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.serverlist"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	servers, err := h.service.ListServersWithOccupancy(r.Context())
	if err != nil {
		log.Error("failed to list servers", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	views := make([]serverView, 0, len(servers))
	for _, s := range servers {
		views = append(views, serverView{
			ID:        s.ID,
			Name:      s.Name,
			Address:   s.Address,
			Capacity:  s.Capacity,
			Active:    s.Active,
			Occupancy: s.Occupancy,
		})
	}

	log.Info("success to list servers", slog.Int("count", len(views)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"servers": views,
	}))
}
