package model

import "time"

// Grant is the funder-facing project metadata stored in grant.yaml.
// Only the fields the toolkit reads or writes are named; everything else
// in the file is preserved verbatim through the inline Extra map so a
// sync write-back never loses hand-maintained keys.
type Grant struct {
	ID              string         `yaml:"id,omitempty"`
	Name            string         `yaml:"name,omitempty"`
	Foundation      string         `yaml:"foundation,omitempty"`
	Program         string         `yaml:"program,omitempty"`
	Deadline        string         `yaml:"deadline,omitempty"`
	Status          string         `yaml:"status,omitempty"`
	AmountRequested int            `yaml:"amount_requested"`
	DurationYears   int            `yaml:"duration_years,omitempty"`
	BudgetCap       float64        `yaml:"budget_cap,omitempty"`
	AnnualBudgetCap float64        `yaml:"annual_budget_cap,omitempty"`
	ResearchGov     map[string]any `yaml:"research_gov,omitempty"`
	Extra           map[string]any `yaml:",inline"`
}

// GrantRecord is a grant row in the collaboration backend.
type GrantRecord struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Foundation      string         `json:"foundation,omitempty"`
	Program         string         `json:"program,omitempty"`
	Deadline        string         `json:"deadline,omitempty"`
	Status          string         `json:"status,omitempty"`
	AmountRequested int            `json:"amount_requested"`
	DurationYears   int            `json:"duration_years,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Budget          map[string]any `json:"budget,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// ResponseRecord is one proposal response document in the backend,
// keyed by (grant_id, key).
type ResponseRecord struct {
	ID        string    `json:"id"`
	GrantID   string    `json:"grant_id"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	WordLimit *int      `json:"word_limit,omitempty"`
	CharLimit *int      `json:"char_limit,omitempty"`
	Question  string    `json:"question,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
