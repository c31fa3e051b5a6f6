package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	SubjectEvents        = "capchat.events"
	subjectConnectedRoot = "capchat.provider.connected"
	subjectInvokedRoot   = "capchat.invoked"
)

// BuildConnectedSubject builds the subject announcing a connected provider.
func BuildConnectedSubject(provider string) string {
	return fmt.Sprintf("%s.%s", subjectConnectedRoot, Token(provider))
}

// BuildInvokedSubject builds the subject for invocations of one capability.
func BuildInvokedSubject(provider, capability string) string {
	return fmt.Sprintf("%s.%s.%s", subjectInvokedRoot, Token(provider), Token(capability))
}

// Token makes s safe to use as a single subject token. Separators and wildcards
// become underscores.
func Token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '/', ':':
			return '_'
		}
		return r
	}, s)
}
