package domain

import "errors"

// Базовые категории ошибок. Сервисы оборачивают их через
// fmt.Errorf("%w: ..."), хендлеры сопоставляют errors.Is.
var (
	// ErrValidation: некорректный ввод, отклоняется до любого I/O
	ErrValidation = errors.New("validation error")
	// ErrNotFound: файл отсутствует, принадлежит другому тенанту
	// или помечен удаленным
	ErrNotFound = errors.New("not found")
	// ErrIntegrity: несовпадение ключа коллбэка или подписи токена
	ErrIntegrity = errors.New("integrity error")
	// ErrIO: ошибки хранилища, сетевых чтений и таймауты стримов
	ErrIO = errors.New("io error")
)
