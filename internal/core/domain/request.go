package domain

// TaskFeatures carries the common task core plus per-scenario extension blocks.
// Exactly one extension block is expected to be set for scenarios that need one;
// the orchestrator never mutates the request after construction.
type TaskFeatures struct {
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RequireJSON bool   `json:"require_json,omitempty"`
	BudgetTier  string `json:"budget_tier,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`

	Model    *ModelTask    `json:"model,omitempty"`
	Prompt   *PromptTask   `json:"prompt,omitempty"`
	Product  *ProductTask  `json:"product,omitempty"`
	Elements *ElementsTask `json:"elements,omitempty"`
}

type ModelTask struct {
	EstimatedTokens int  `json:"estimated_tokens,omitempty"`
	Vision          bool `json:"vision,omitempty"`
}

type PromptTask struct {
	BusinessModule string   `json:"business_module"`
	Variables      []string `json:"variables,omitempty"`
}

type ProductTask struct {
	ProductName string `json:"product_name,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

// ElementsTask holds caller-supplied content element candidates to score.
type ElementsTask struct {
	Texts []string `json:"texts"`
	Goal  string   `json:"goal,omitempty"` // "selling_point" or "pain_point"
}

// RequestContext carries soft ranking hints; no field is a hard filter on its own.
type RequestContext struct {
	Region     string `json:"region,omitempty"`
	Channel    string `json:"channel,omitempty"`
	Audience   string `json:"audience,omitempty"`
	BudgetTier string `json:"budget_tier,omitempty"`
}

// Constraints are hard eligibility requirements evaluated before any scoring.
type Constraints struct {
	MaxCostPer1K    float64  `json:"max_cost_per_1k,omitempty"`
	MaxLatencyMs    int      `json:"max_latency_ms,omitempty"`
	RequireJSONMode bool     `json:"require_json_mode,omitempty"`
	ProviderAllow   []string `json:"provider_allow,omitempty"`
	ProviderDeny    []string `json:"provider_deny,omitempty"`
}

type RequestOptions struct {
	RequestID       string `json:"request_id,omitempty"`
	StrategyVersion string `json:"strategy_version,omitempty"`
	BypassCache     bool   `json:"bypass_cache,omitempty"`
}

// RecommendRankRequest is the immutable input to one ranking call.
type RecommendRankRequest struct {
	Scenario    Scenario       `json:"scenario"`
	Task        TaskFeatures   `json:"task"`
	Context     RequestContext `json:"context"`
	Constraints Constraints    `json:"constraints"`
	Options     RequestOptions `json:"options"`
}
