package domain

import "time"

// Catalog records are the raw domain pools the per-scenario scorers rank over.

type ModelCandidate struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"` // internal provider key
	Languages    []string  `json:"languages,omitempty"`
	SupportsJSON bool      `json:"supports_json"`
	Vision       bool      `json:"vision"`
	PricePer1K   float64   `json:"price_per_1k"`
	Regions      []string  `json:"regions,omitempty"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PromptTemplate struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	BusinessModule string    `json:"business_module"`
	Variables      []string  `json:"variables,omitempty"`
	IsDefault      bool      `json:"is_default"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Persona struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Category    string    `json:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty"`
	Region      string    `json:"region,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Script struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary,omitempty"`
	ProductID   string    `json:"product_id,omitempty"`
	ProductName string    `json:"product_name,omitempty"`
	Category    string    `json:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty"`
	Channel     string    `json:"channel,omitempty"`
	DurationSec int       `json:"duration_sec,omitempty"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Style struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	IsDefault bool      `json:"is_default"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
	Region      string `json:"region,omitempty"`
}

// SubjectQuery is the broad-recall OR query used by the persona and script
// scorers: any present key may match, absence of all keys degrades to a
// catalog-wide scan bounded by the store's row cap.
type SubjectQuery struct {
	ProductID   string
	ProductName string
	Category    string
	Subcategory string
}

func (q SubjectQuery) Empty() bool {
	return q.ProductID == "" && q.ProductName == "" && q.Category == "" && q.Subcategory == ""
}
