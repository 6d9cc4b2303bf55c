// Package milestone определяет вехи обратного отсчёта до окончания доступа
// и календарную арифметику для их вычисления. Напоминание по каждой вехе
// отправляется не более одного раза на дату окончания.
package milestone

import "time"

// Milestone — именованная точка отсчёта до окончания доступа.
type Milestone string

const (
	// UpcomingThreeDays — до даты окончания ровно три календарных дня.
	UpcomingThreeDays Milestone = "t-3d"
	// UpcomingOneDay — до даты окончания ровно один календарный день.
	UpcomingOneDay Milestone = "t-1d"
	// Expired — момент окончания уже в прошлом.
	Expired Milestone = "expired"
)

// Upcoming возвращает вехи, вычисляемые по будущей дате окончания.
func Upcoming() []Milestone {
	return []Milestone{UpcomingThreeDays, UpcomingOneDay}
}

// Offset возвращает число дней от сегодняшнего дня до целевой даты вехи.
func (m Milestone) Offset() int {
	switch m {
	case UpcomingThreeDays:
		return 3
	case UpcomingOneDay:
		return 1
	default:
		return 0
	}
}

// TargetDate возвращает календарную дату окончания (UTC, полночь),
// по которой веха m должна сработать, если "сейчас" — момент now.
func (m Milestone) TargetDate(now time.Time) time.Time {
	return Truncate(now).AddDate(0, 0, m.Offset())
}

// Truncate приводит момент времени к его календарной дате в UTC.
// Дата используется как часть ключа дедупликации уведомлений.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
