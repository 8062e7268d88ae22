package types

// SuccessEnvelope wraps every successful response from the local surface.
// Warning carries the sync side-channel: a mutation that committed locally
// but failed to reach the backend still returns 200 with data, plus the
// warning the UI should toast.
type SuccessEnvelope struct {
	Data    any    `json:"data"`
	Warning string `json:"warning,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
