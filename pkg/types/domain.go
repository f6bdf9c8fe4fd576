package types

// ServiceKind tells how a service produces predictions.
type ServiceKind string

const (
	// KindBundle services run a model bundle in-process.
	KindBundle ServiceKind = "bundle"
	// KindProxy services forward requests to a hosted model.
	KindProxy ServiceKind = "proxy"
)

// ServiceInfo describes a mounted prediction service.
type ServiceInfo struct {
	// Stable identifier for the service.
	// example: german_credit_dtree
	ID string `json:"id" example:"german_credit_dtree"`
	// Human-friendly name.
	// example: German credit decision tree
	Name string `json:"name" example:"German credit decision tree"`
	// Route serving POST predictions.
	// example: /german_credit_dtree/predict
	Endpoint string `json:"endpoint" example:"/german_credit_dtree/predict"`
	// example: bundle
	Kind ServiceKind `json:"kind" example:"bundle"`
	// Bundle path or hosted model URL.
	// example: /models/german_credit_dtree.json
	Source string `json:"source" example:"/models/german_credit_dtree.json"`
	// Whether responses include per-class scores.
	SupportsSoftScores bool `json:"supports_soft_scores"`
	// Outcome labels, when known.
	Outcomes []any `json:"outcomes,omitempty"`
	// Input column names, when known.
	Columns []string `json:"columns,omitempty"`
}
