package eventstore

import (
	"encoding/json"
	"strings"

	apperrors "herdbook.io/herdbook/internal/pkg/errors"
)

// validatedEvent is the output of validation: the normalized event plus its
// payload marshaled once, so the append pipeline never re-serializes.
type validatedEvent struct {
	event Event
	data  []byte
}

// ValidateEvent checks an inbound event against the canonical contract.
// It reports every violated field constraint, not just the first.
// This is the only gate: no code path may reach storage without it.
func ValidateEvent(e Event) error {
	_, err := validateEvent(e)
	return err
}

func validateEvent(e Event) (validatedEvent, error) {
	var fieldErrs []apperrors.FieldError

	if strings.TrimSpace(e.ID) == "" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "id", Code: apperrors.CodeFieldRequired, Message: "event id is required",
		})
	}
	if strings.TrimSpace(e.Type) == "" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "type", Code: apperrors.CodeFieldRequired, Message: "event type is required",
		})
	} else if !isDotSegmented(e.Type) {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "type", Code: apperrors.CodeFieldInvalid,
			Message: "event type must be dot-segmented, e.g. \"note.creation.requested\"",
		})
	}
	if strings.TrimSpace(e.SubjectID) == "" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "subject_id", Code: apperrors.CodeFieldRequired, Message: "subject id is required",
		})
	}
	if e.SubjectType != "" && !e.SubjectType.Valid() {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "subject_type", Code: apperrors.CodeFieldInvalid,
			Message: "subject type must be one of entity, relation, user, system",
		})
	}
	if strings.TrimSpace(e.UserID) == "" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "user_id", Code: apperrors.CodeFieldRequired, Message: "user id is required",
		})
	}
	if e.Source == "" {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "source", Code: apperrors.CodeFieldRequired, Message: "source is required",
		})
	} else if !e.Source.Valid() {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "source", Code: apperrors.CodeFieldInvalid,
			Message: "source must be one of api, automation, sync, migration, system",
		})
	}
	if e.Timestamp.IsZero() {
		fieldErrs = append(fieldErrs, apperrors.FieldError{
			Field: "timestamp", Code: apperrors.CodeFieldRequired, Message: "timestamp is required",
		})
	}

	data := []byte("{}")
	if e.Data != nil {
		marshaled, err := json.Marshal(e.Data)
		if err != nil {
			fieldErrs = append(fieldErrs, apperrors.FieldError{
				Field: "data", Code: apperrors.CodeFieldNotJSON,
				Message: "payload is not JSON-serializable",
			})
		} else {
			data = marshaled
		}
	}

	if len(fieldErrs) > 0 {
		return validatedEvent{}, apperrors.Validation(fieldErrs)
	}

	normalized := e
	normalized.ID = strings.TrimSpace(e.ID)
	normalized.Type = strings.TrimSpace(e.Type)
	normalized.SubjectID = strings.TrimSpace(e.SubjectID)
	normalized.UserID = strings.TrimSpace(e.UserID)
	return validatedEvent{event: normalized, data: data}, nil
}

// isDotSegmented reports whether t consists of at least two non-empty
// dot-separated segments.
func isDotSegmented(t string) bool {
	segments := strings.Split(t, ".")
	if len(segments) < 2 {
		return false
	}
	for _, seg := range segments {
		if seg == "" {
			return false
		}
	}
	return true
}
