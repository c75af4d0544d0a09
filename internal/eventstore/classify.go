package eventstore

import "strings"

// classifyRule maps an event type prefix to a subject type.
// Rules are evaluated in order; the first match wins.
type classifyRule struct {
	prefix   string
	category SubjectType
}

var classifyRules = []classifyRule{
	{"note.", SubjectEntity},
	{"task.", SubjectEntity},
	{"entity.", SubjectEntity},
	{"relation.", SubjectRelation},
	{"user.", SubjectUser},
}

// ClassifySubjectType derives a coarse subject category from an event type
// string. It is total: unknown prefixes fall through to SubjectSystem.
// Callers that supplied an explicit subject type must not invoke it.
func ClassifySubjectType(eventType string) SubjectType {
	for _, rule := range classifyRules {
		if strings.HasPrefix(eventType, rule.prefix) {
			return rule.category
		}
	}
	return SubjectSystem
}
