package domain

import (
	"context"
	"fmt"
)

// Severity ranks rule violations.
type Severity string

const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
)

// Action identifies what a transactional change did.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Change records a single entity mutation performed inside a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Violation describes one rule breach.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates the violations raised during one rule evaluation pass.
type Result struct {
	Violations []Violation
}

// HasBlocking reports whether any violation must abort the transaction.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Merge appends the violations of other onto r.
func (r *Result) Merge(other Result) {
	r.Violations = append(r.Violations, other.Violations...)
}

// RuleViolationError is returned when a transaction is rejected by a blocking
// violation.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("rule %s: %s", v.Rule, v.Message)
		}
	}
	return "rule violation"
}

// RuleView provides read-only access to study state for rule evaluation.
type RuleView interface {
	ListStudies() []Study
	FindStudy(id string) (Study, bool)
	ListDesigns() []Design
	ListResultTables() []ResultTable
}

// Rule is an invariant evaluated within every transaction boundary.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, view RuleView, changes []Change) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, view, changes)
		if err != nil {
			return Result{}, err
		}
		combined.Merge(res)
	}
	return combined, nil
}
