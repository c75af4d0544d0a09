package errors

import "net/http"

// Event store error codes.
// Errors carry code + params; human messages stay short and English-only.
const (
	CodeValidationFailed = "EVENT_VALIDATION_FAILED"
	CodeEventConflict    = "EVENT_CONFLICT"
	CodeEventNotFound    = "EVENT_NOT_FOUND"
	CodeStorageFailure   = "EVENT_STORAGE_FAILURE"
)

// Field-level validation codes attached via FieldError.
const (
	CodeFieldRequired = "FIELD_REQUIRED"
	CodeFieldInvalid  = "FIELD_INVALID"
	CodeFieldNotJSON  = "FIELD_NOT_JSON_SERIALIZABLE"
)

// Validation creates a validation error carrying every violated field.
func Validation(fieldErrors []FieldError) *AppError {
	return New(CodeValidationFailed, "event failed schema validation", http.StatusBadRequest).
		WithFieldErrors(fieldErrors)
}

// EventConflictf creates a conflict error for a duplicate id or version collision.
func EventConflictf(eventID, subjectID string, version int64) *AppError {
	return Conflict(CodeEventConflict, "event id or subject version already exists").
		WithParams(map[string]interface{}{
			"event_id":   eventID,
			"subject_id": subjectID,
			"version":    version,
		})
}

// EventNotFoundf creates a not found error for a missing event id.
func EventNotFoundf(eventID string) *AppError {
	return NotFound(CodeEventNotFound, "event not found").
		WithParams(map[string]interface{}{"event_id": eventID})
}

// Storage wraps a storage boundary fault. Never auto-retried by the store.
func Storage(err error, op string) *AppError {
	return Wrap(err, CodeStorageFailure, "storage operation failed: "+op, http.StatusInternalServerError)
}

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == CodeValidationFailed
}

// IsConflict reports whether err is a uniqueness or version conflict.
func IsConflict(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == CodeEventConflict
}

// IsNotFound reports whether err is a missing-event failure.
func IsNotFound(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == CodeEventNotFound
}

// IsStorage reports whether err is a storage boundary fault.
func IsStorage(err error) bool {
	appErr, ok := IsAppError(err)
	return ok && appErr.Code == CodeStorageFailure
}
