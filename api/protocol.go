package api

const requestMaxSize = 64 * 1024 // 64 KiB

const headerIdempotencyKey = "Idempotency-Key"

type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse mirrors the {"detail": ...} body existing clients expect.
type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
