// Package planlist реализует HTTP-обработчик для получения каталога тарифов.
package planlist

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Catalog возвращает тарифы в порядке конфига.
type Catalog interface {
	List() []models.Plan
	Version() string
}

// Handler обрабатывает запросы на получение каталога тарифов.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	catalog Catalog      // Каталог тарифов, загруженный при старте
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, catalog Catalog) *Handler {
	return &Handler{
		log:     log,
		catalog: catalog,
	}
}

// ServeHTTP godoc
// @Summary Каталог тарифов
// @Description Возвращает версию каталога и список тарифов с ценами
// @Tags Plans
// @Produce  json
// @Success 200 {object} response.Response "Каталог тарифов"
// @Router /plans [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.plan.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	plans := h.catalog.List()
	log.Info("success to list plans", slog.Int("count", len(plans)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"version": h.catalog.Version(),
		"plans":   plans,
	}))
}
