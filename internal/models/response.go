package models

// APIResponse is the body of every non-listing JSON response.
type APIResponse struct {
	Success string            `json:"success,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success acknowledgment
func NewSuccessResponse(message string) APIResponse {
	return APIResponse{Success: message}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{Error: message}
}

// NewValidationErrorResponse creates an error response carrying per-field messages
func NewValidationErrorResponse(message string, errors map[string]string) APIResponse {
	return APIResponse{
		Error:  message,
		Errors: errors,
	}
}

type ShortURLRequest struct {
	URL string `json:"url"`
}

type ShortURLResponse struct {
	URL string `json:"url"`
}

type ContributorsResponse struct {
	Count int    `json:"count"`
	Users []User `json:"users"`
}
