package models

// Роли пользователей, приходят в access токене.
const (
	RoleGiver     = "giver"
	RoleInstaller = "installer"
	RoleAdmin     = "admin"
)

// CancellationReason - причина отмены, от неё зависит ветка расчёта.
type CancellationReason string

const (
	CancellationReasonGiver  CancellationReason = "giver_cancelled"
	CancellationReasonNoShow CancellationReason = "no_show"
	// CancellationReasonUnfunded - закрытие до фондирования, денег в escrow нет.
	CancellationReasonUnfunded CancellationReason = "cancelled_before_funding"
)

// ValidRoles список валидных ролей
var ValidRoles = map[string]struct{}{
	RoleGiver:     {},
	RoleInstaller: {},
	RoleAdmin:     {},
}
