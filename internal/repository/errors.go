package repository

import "errors"

var ErrNotFound = errors.New("запись не найдена")
var ErrVersionConflict = errors.New("конфликт версий")
var ErrConflict = errors.New("конфликт уникальности")
