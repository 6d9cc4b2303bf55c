package models

import "time"

// AccessServer описывает сервер доступа из пула балансировщика.
// Capacity = nil означает отсутствие лимита на число пользователей.
type AccessServer struct {
	ID        int64
	Name      string
	Address   string
	Capacity  *int
	Active    bool
	CreatedAt time.Time
}

// ServerOccupancy — сервер вместе с текущим числом аллокаций,
// используется в административном списке пула.
type ServerOccupancy struct {
	AccessServer
	Occupancy int
}

// Allocation — текущая привязка пользователя к серверу доступа.
// У пользователя не бывает двух аллокаций одновременно.
type Allocation struct {
	UserUID    string
	ServerID   int64
	AssignedAt time.Time
}

// AllocationCheck — текущая привязка пользователя вместе с состоянием
// её сервера: активность, вместимость и занятость на момент проверки.
type AllocationCheck struct {
	ServerID  int64
	Active    bool
	Capacity  *int
	Occupancy int
}

// DummyServer используется для приёма данных администратора из JSON-запроса.
type DummyServer struct {
	Name     string `json:"name" validate:"required,min=2,max=64"`
	Address  string `json:"address" validate:"required"`
	Capacity *int   `json:"capacity" validate:"omitempty,gt=0"`
}

// DummyServerUpdate — частичное обновление сервера: активность и вместимость.
// Unlimited = true снимает лимит вместимости, отсутствующие поля не меняются.
type DummyServerUpdate struct {
	Active    *bool `json:"active"`
	Capacity  *int  `json:"capacity" validate:"omitempty,gt=0"`
	Unlimited *bool `json:"unlimited"`
}
