package types

type SuccessEnvelope struct {
	Data any `json:"data"`
	Meta any `json:"meta,omitempty"`
}

type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// BatchMeta accompanies batch reads that silently skip unknown ids.
type BatchMeta struct {
	Requested  int     `json:"requested"`
	Returned   int     `json:"returned"`
	MissingIDs []int64 `json:"missingIds"`
}
