// Package reconcile реализует HTTP-обработчик ремонтного прохода:
// повторного зачисления подтверждённых покупок, у которых нет отметки
// о зачислении в леджер.
//
// Проход запускается оператором вручную, не по расписанию: перед повтором
// причина первоначального сбоя должна быть понятна.
package reconcile

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

// Service описывает интерфейс ремонтного прохода по дырам сведения.
type Service interface {
	RepairGaps(ctx context.Context) ([]*models.Purchase, error)
}

// Handler обрабатывает запросы на запуск ремонтного прохода.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис сведения платежей
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Ремонтный проход
// @Description Повторяет зачисление для подтверждённых покупок без отметки о зачислении
// @Tags Admin
// @Produce  json
// @Success 200 {object} response.Response "Закрытые дыры сведения"
// @Failure 401 {object} response.ErrorResponse "Администратор не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/reconcile [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.reconcile"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	repaired, err := h.service.RepairGaps(r.Context())
	if err != nil {
		log.Error("failed to repair reconciliation gaps", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	orderIDs := make([]string, 0, len(repaired))
	for _, p := range repaired {
		orderIDs = append(orderIDs, p.OrderID)
	}

	log.Info("reconciliation sweep finished", slog.Int("repaired", len(orderIDs)))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"repaired_count": len(orderIDs),
		"order_ids":      orderIDs,
	}))
}
