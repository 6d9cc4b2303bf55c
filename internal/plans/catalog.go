// Package plans содержит версионированный каталог тарифов.
//
// Каталог загружается из конфига при старте и синхронизируется в базу:
// более старая или равная версия каталога в конфиге не перезаписывает
// уже сохранённую.
package plans

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// CatalogStore описывает операции хранилища, нужные для синхронизации каталога.
type CatalogStore interface {
	GetCatalogVersion(ctx context.Context) (string, error)
	SetCatalogVersion(ctx context.Context, version string) error
	UpsertPlan(ctx context.Context, plan models.Plan) error
	DeactivateMissingPlans(ctx context.Context, codes []string) (int, error)
}

// Catalog хранит тарифы в памяти, порядок соответствует конфигу.
type Catalog struct {
	version string
	order   []string
	plans   map[string]models.Plan
}

// Load собирает каталог из конфига и валидирует его.
func Load(cfg config.Catalog) (*Catalog, error) {
	const op = "plans.Load"

	version := normalizeVersion(cfg.Version)
	if !semver.IsValid(version) {
		return nil, fmt.Errorf("%s: invalid catalog version %q", op, cfg.Version)
	}
	if len(cfg.Plans) == 0 {
		return nil, fmt.Errorf("%s: catalog has no plans", op)
	}

	c := &Catalog{
		version: version,
		order:   make([]string, 0, len(cfg.Plans)),
		plans:   make(map[string]models.Plan, len(cfg.Plans)),
	}
	for _, p := range cfg.Plans {
		if p.Code == "" {
			return nil, fmt.Errorf("%s: plan with empty code", op)
		}
		if _, ok := c.plans[p.Code]; ok {
			return nil, fmt.Errorf("%s: duplicate plan code %q", op, p.Code)
		}
		if p.DurationDays <= 0 {
			return nil, fmt.Errorf("%s: plan %q has non-positive duration", op, p.Code)
		}
		if p.PriceKopecks <= 0 {
			return nil, fmt.Errorf("%s: plan %q has non-positive price", op, p.Code)
		}
		currency := p.Currency
		if currency == "" {
			currency = "RUB"
		}
		c.order = append(c.order, p.Code)
		c.plans[p.Code] = models.Plan{
			Code:         p.Code,
			Label:        p.Label,
			DurationDays: p.DurationDays,
			PriceKopecks: p.PriceKopecks,
			Currency:     currency,
		}
	}
	return c, nil
}

// Version возвращает нормализованную версию каталога.
func (c *Catalog) Version() string {
	return c.version
}

// Get возвращает тариф по коду либо models.ErrUnknownPlan.
func (c *Catalog) Get(code string) (models.Plan, error) {
	const op = "plans.Get"
	p, ok := c.plans[code]
	if !ok {
		return models.Plan{}, fmt.Errorf("%s: %w", op, models.ErrUnknownPlan)
	}
	return p, nil
}

// List возвращает тарифы в порядке конфига.
func (c *Catalog) List() []models.Plan {
	out := make([]models.Plan, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.plans[code])
	}
	return out
}

// SyncToStorage записывает каталог в хранилище, если его версия новее
// сохранённой. Возвращает true, если каталог был применён.
//
// Тарифы, которых больше нет в конфиге, помечаются неактивными, их строки
// не удаляются: на них могут ссылаться действующие доступы и покупки.
func (c *Catalog) SyncToStorage(ctx context.Context, store CatalogStore) (bool, error) {
	const op = "plans.SyncToStorage"

	stored, err := store.GetCatalogVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if stored != "" && semver.Compare(normalizeVersion(stored), c.version) >= 0 {
		return false, nil
	}

	for _, code := range c.order {
		if err := store.UpsertPlan(ctx, c.plans[code]); err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
	}
	if _, err := store.DeactivateMissingPlans(ctx, c.order); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err := store.SetCatalogVersion(ctx, c.version); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

func normalizeVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return v
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
