package models

// Plan — тариф из каталога: код, длительность доступа и цена.
// Каталог версионирован и после загрузки не изменяется.
type Plan struct {
	Code         string `json:"code"`
	Label        string `json:"label"`
	DurationDays int    `json:"duration_days"`
	PriceKopecks int64  `json:"price_kopecks"`
	Currency     string `json:"currency"`
}
