// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях XP-движка.
// Важно: исходы политики начисления (дубликат, кулдаун, лимит) — НЕ ошибки,
// они возвращаются как типизированные причины в результатах (см. features/xp).
// Здесь только настоящие ошибки: дефекты вызова и проблемы инфраструктуры.
package common

import "errors"

// Ошибки каталога источников XP
var (
	// ErrUnknownSource — источник начисления не зарегистрирован в каталоге
	ErrUnknownSource = errors.New("неизвестный источник начисления XP")
)

// Ошибки параметров
var (
	// ErrInvalidUserID — пустой или некорректный ID пользователя
	ErrInvalidUserID = errors.New("некорректный ID пользователя")
	// ErrInvalidSession — пустой ID гостевой сессии
	ErrInvalidSession = errors.New("некорректный ID гостевой сессии")
)

// Ошибки админки
var (
	// ErrNotAdmin — неверный админ-ключ
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)
