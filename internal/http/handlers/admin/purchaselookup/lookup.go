// Package purchaselookup реализует HTTP-обработчик поиска покупки по её
// идемпотентному ключу order_id. Используется при разборе обращений:
// администратор видит состояние ордера и кому он принадлежит.
package purchaselookup

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс чтения покупки и её владельца.
type Service interface {
	GetPurchaseByOrderID(ctx context.Context, orderID string) (*models.Purchase, error)
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// Handler обрабатывает запросы на поиск покупки.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Хранилище покупок и пользователей
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// purchaseView — представление покупки в административном ответе.
type purchaseView struct {
	OrderID       string     `json:"order_id"`
	UserUID       string     `json:"user_uid"`
	UserLabel     string     `json:"user_label,omitempty"`
	UserEmail     string     `json:"user_email,omitempty"`
	PlanCode      string     `json:"plan_code"`
	AmountKopecks int64      `json:"amount_kopecks"`
	Currency      string     `json:"currency"`
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
	CreditedAt    *time.Time `json:"credited_at,omitempty"`
}

// ServeHTTP godoc
// @Summary Покупка по order_id
// @Description Возвращает состояние покупки и данные её владельца
// @Tags Admin
// @Produce  json
// @Param order_id path string true "Идемпотентный ключ покупки"
// @Success 200 {object} response.Response "Покупка"
// @Failure 401 {object} response.ErrorResponse "Администратор не авторизован"
// @Failure 404 {object} response.ErrorResponse "Покупка не найдена"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /admin/purchases/{order_id} [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.purchaselookup"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		log.Error("missing order_id in url")
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing order_id"))
		return
	}

	purchase, err := h.service.GetPurchaseByOrderID(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Error("purchase not found", slog.String("order_id", orderID))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("purchase not found"))
			return
		}
		log.Error("failed to get purchase", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	view := purchaseView{
		OrderID:       purchase.OrderID,
		UserUID:       purchase.UserUID,
		PlanCode:      purchase.PlanCode,
		AmountKopecks: purchase.AmountKopecks,
		Currency:      purchase.Currency,
		Channel:       purchase.Channel,
		Status:        purchase.Status,
		CreatedAt:     purchase.CreatedAt,
		ConfirmedAt:   purchase.ConfirmedAt,
		CreditedAt:    purchase.CreditedAt,
	}

	// Подтверждение могло создать покупку раньше, чем пользователь впервые
	// пришёл с identity-токеном, тогда владельца в реестре ещё нет.
	user, err := h.service.GetUser(r.Context(), purchase.UserUID)
	switch {
	case err == nil:
		view.UserLabel = user.Label
		view.UserEmail = user.Email
	case errors.Is(err, sql.ErrNoRows):
		log.Warn("purchase owner not registered", slog.String("user_uid", purchase.UserUID))
	default:
		log.Error("failed to get purchase owner", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("success to get purchase", slog.String("order_id", orderID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"purchase": view,
	}))
}
