package domain

import "context"

// Transaction exposes the mutations a persistence implementation must support
// within an atomic scope.
type Transaction interface {
	CreateStudy(Study) (Study, error)
	UpdateStudy(id string, mutator func(*Study) error) (Study, error)
	DeleteStudy(id string) error
	CreateDesign(Design) (Design, error)
	DeleteDesign(id string) error
	CreateResultTable(ResultTable) (ResultTable, error)
	DeleteResultTable(id string) error
	FindStudy(id string) (Study, bool)
	FindDesign(id string) (Design, bool)
}

// TransactionView provides read-only access to committed or in-flight state.
type TransactionView interface {
	ListStudies() []Study
	FindStudy(id string) (Study, bool)
	ListDesigns() []Design
	FindDesign(id string) (Design, bool)
	ListResultTables() []ResultTable
	FindResultTable(id string) (ResultTable, bool)
}

// PersistentStore is the minimal abstraction over durable backends used by
// higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetStudy(id string) (Study, bool)
	ListStudies() []Study
	GetDesign(id string) (Design, bool)
	ListDesigns() []Design
	GetResultTable(id string) (ResultTable, bool)
	ListResultTables() []ResultTable
}
