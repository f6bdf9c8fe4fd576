package types

// PredictRequest is the body accepted by every POST .../predict endpoint.
type PredictRequest struct {
	// Batch of feature rows to score.
	Payload PredictPayload `json:"payload"`
}

// PredictPayload carries the rows of a prediction request.
type PredictPayload struct {
	// Feature rows in the column order the model was trained with. Values may be
	// numbers or strings (categorical columns).
	// example: [[1,"A11",6,"A34"]]
	Instances [][]any `json:"instances"`
}

// PredictResponse is returned by a successful prediction.
type PredictResponse struct {
	Payload PredictionPayload `json:"payload"`
}

// PredictionPayload holds one prediction per input row. Scores and Labels are
// only present for services that expose soft scores.
type PredictionPayload struct {
	// One prediction per instance, in request order.
	// example: [1,2,1]
	Predictions []any `json:"predictions"`
	// Per-class scores for each instance (soft-scoring services only).
	Scores [][]float64 `json:"scores,omitempty"`
	// Class label of each score column.
	// example: [1,2]
	Labels []any `json:"labels,omitempty"`
}

// ModelsResponse wraps the list of services returned by GET /models.
type ModelsResponse struct {
	// Services mounted on this server.
	Models []ServiceInfo `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// JournalResponse is returned by GET /journal.
type JournalResponse struct {
	Entries []JournalEntry `json:"entries"`
}

// JournalEntry is one recorded prediction call.
type JournalEntry struct {
	// example: 5b1f3c1e-7c0e-4d8a-9a59-1a1f0c3c9e20
	ID string `json:"id" example:"5b1f3c1e-7c0e-4d8a-9a59-1a1f0c3c9e20"`
	// example: german_credit_dtree
	Service string `json:"service" example:"german_credit_dtree"`
	// example: 10
	Instances int `json:"instances" example:"10"`
	// HTTP status the call resolved to.
	// example: 200
	Status int `json:"status" example:"200"`
	// example: 3
	DurationMS int64  `json:"duration_ms" example:"3"`
	Error      string `json:"error,omitempty"`
	// example: 1700000000
	CreatedUnix int64 `json:"created_unix" example:"1700000000"`
}
