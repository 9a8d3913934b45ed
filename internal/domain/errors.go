package domain

import "errors"

var (
	ErrNotFound          = errors.New("запись не найдена")
	ErrUserNotFound      = errors.New("пользователь не найден")
	ErrDoctorNotFound    = errors.New("врач не найден")
	ErrInvalidSlot       = errors.New("недопустимый слот времени")
	ErrSlotConflict      = errors.New("выбранный слот времени уже занят")
	ErrDoctorNotBookable = errors.New("врач недоступен для записи")
	ErrInvalidState      = errors.New("недопустимый переход статуса записи")
	ErrForbidden         = errors.New("доступ запрещен")
	ErrInvalidPassword   = errors.New("неверный пароль")
	ErrSessionExpired    = errors.New("сессия истекла")
)
