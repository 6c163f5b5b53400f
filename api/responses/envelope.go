package responses

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the body under "error". Details is present only for codes
// whose metadata allows it, e.g. {"reason": "NOT_APPLICABLE_TO_CART"}.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
