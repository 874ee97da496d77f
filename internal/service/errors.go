package service

import "fmt"

type BusinessError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

type Detail struct {
	Key     string
	Payload any
}

type Resource string

const ResourceTask Resource = "Задача"
const ResourceSubscription Resource = "Подписка"

const CodeNotFound = "NOT_FOUND"
const CodeValidation = "VALIDATION_ERROR"
const CodeForbidden = "FORBIDDEN"
const CodeVersionConflict = "VERSION_CONFLICT"

func (b *BusinessError) Error() string {
	if b.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", b.Code, b.Message, b.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", b.Code, b.Message)
}

func (b *BusinessError) Unwrap() error {
	return b.Err
}

func ToDetail(key string, payload any) Detail {
	return Detail{
		Key:     key,
		Payload: payload,
	}
}

func NewBusinessError(code string, message string, details ...Detail) *BusinessError {
	busErr := &BusinessError{
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}

	for _, detail := range details {
		busErr.Details[detail.Key] = detail.Payload
	}

	return busErr
}

func NewNotFound(resource Resource, id string) *BusinessError {
	return NewBusinessError(CodeNotFound,
		fmt.Sprintf("%s %s не найден(а)", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewValidationError(field, reason string) *BusinessError {
	return NewBusinessError(CodeValidation,
		fmt.Sprintf("Неверное значение поля '%s': %s", field, reason),
		ToDetail("field", field),
		ToDetail("reason", reason),
	)
}

func NewForbidden(resource Resource, id string) *BusinessError {
	return NewBusinessError(CodeForbidden,
		fmt.Sprintf("%s %s принадлежит другому пользователю", resource, id),
		ToDetail("resource", resource),
		ToDetail("id", id),
	)
}

func NewVersionConflict(id string, err error) *BusinessError {
	busErr := NewBusinessError(CodeVersionConflict,
		"Задача была изменена параллельно, повторите запрос",
		ToDetail("id", id),
	)
	busErr.Err = err
	return busErr
}
