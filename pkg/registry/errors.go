package registry

import "errors"

// Error codes shared by the registry, dispatcher, and orchestrator.
const (
	CodeConnectionFailed       = "CONNECTION_FAILED"
	CodeVersionUnsupported     = "VERSION_UNSUPPORTED"
	CodeListingFailed          = "LISTING_FAILED"
	CodeCapabilityNotAvailable = "CAPABILITY_NOT_AVAILABLE"
	CodeTransportError         = "TRANSPORT_ERROR"
	CodeProviderError          = "PROVIDER_ERROR"
	CodeNotFound               = "NOT_FOUND"
	CodeInvalidDirective       = "INVALID_DIRECTIVE"
)

// RegistryError is a structured error carrying one of the codes above.
type RegistryError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *RegistryError) Error() string {
	return e.Code + ": " + e.Message
}

// NewRegistryError creates a new RegistryError.
func NewRegistryError(code, message string) *RegistryError {
	return &RegistryError{Code: code, Message: message}
}

// ErrorCode extracts the code of the first RegistryError in err's chain.
func ErrorCode(err error) string {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
