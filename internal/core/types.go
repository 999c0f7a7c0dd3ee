package core

import "contrastcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Base               = domain.Base
	Sample             = domain.Sample
	Factor             = domain.Factor
	Study              = domain.Study
	Design             = domain.Design
	ResultTable        = domain.ResultTable
	Contrast           = domain.Contrast
	ContrastRequest    = domain.ContrastRequest
	DesignMatrix       = domain.DesignMatrix
	ResultRow          = domain.ResultRow
	Parametrization    = domain.Parametrization
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RuleView           = domain.RuleView
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	ErrNotFound        = domain.ErrNotFound
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityStudy       = domain.EntityStudy
	EntityDesign      = domain.EntityDesign
	EntityResultTable = domain.EntityResultTable
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)

const (
	ParamWithIntercept  = domain.ParamWithIntercept
	ParamCombinedGroups = domain.ParamCombinedGroups
)

// NewRulesEngine mirrors domain.NewRulesEngine for callers working through
// this package.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
