package eventstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifySubjectType(t *testing.T) {
	tests := []struct {
		eventType string
		want      SubjectType
	}{
		{"note.creation.requested", SubjectEntity},
		{"note.updated", SubjectEntity},
		{"task.completed", SubjectEntity},
		{"entity.archived", SubjectEntity},
		{"relation.linked", SubjectRelation},
		{"relation.unlinked", SubjectRelation},
		{"user.login.succeeded", SubjectUser},
		{"chat.message.posted", SubjectSystem},
		{"document.uploaded", SubjectSystem},
		{"maintenance.vacuum.scheduled", SubjectSystem},
		{"noteworthy.created", SubjectSystem}, // prefix match requires the dot
		{"", SubjectSystem},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifySubjectType(tt.eventType))
		})
	}
}
