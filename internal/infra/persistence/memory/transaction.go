package memory

import (
	"fmt"
	"time"

	"contrastcore/pkg/domain"
)

// transaction is a mutable unit of work over a cloned state.
type transaction struct {
	store   *Store
	state   state
	now     time.Time
	changes []domain.Change
}

var _ domain.Transaction = (*transaction)(nil)

func (tx *transaction) record(entity domain.EntityType, action domain.Action, before, after any) {
	tx.changes = append(tx.changes, domain.Change{Entity: entity, Action: action, Before: before, After: after})
}

// CreateStudy persists a new study, assigning identity and timestamps.
func (tx *transaction) CreateStudy(study domain.Study) (domain.Study, error) {
	if study.ID == "" {
		study.ID = newID()
	}
	if _, exists := tx.state.studies[study.ID]; exists {
		return domain.Study{}, fmt.Errorf("study %s already exists", study.ID)
	}
	if len(study.Samples) == 0 {
		return domain.Study{}, fmt.Errorf("study requires at least one sample")
	}
	seen := make(map[string]struct{}, len(study.Samples))
	for _, smp := range study.Samples {
		if smp.ID == "" {
			return domain.Study{}, fmt.Errorf("study %s has a sample without identifier", study.ID)
		}
		if _, dup := seen[smp.ID]; dup {
			return domain.Study{}, fmt.Errorf("study %s has duplicate sample %s", study.ID, smp.ID)
		}
		seen[smp.ID] = struct{}{}
	}
	for _, f := range study.Factors {
		if err := f.Validate(len(study.Samples)); err != nil {
			return domain.Study{}, err
		}
	}
	study.CreatedAt = tx.now
	study.UpdatedAt = tx.now
	stored := cloneStudy(study)
	tx.state.studies[study.ID] = stored
	tx.record(domain.EntityStudy, domain.ActionCreate, nil, cloneStudy(stored))
	return cloneStudy(stored), nil
}

// UpdateStudy mutates a study through the provided mutator.
func (tx *transaction) UpdateStudy(id string, mutator func(*domain.Study) error) (domain.Study, error) {
	current, ok := tx.state.studies[id]
	if !ok {
		return domain.Study{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: id}
	}
	before := cloneStudy(current)
	updated := cloneStudy(current)
	if err := mutator(&updated); err != nil {
		return domain.Study{}, err
	}
	updated.ID = id
	updated.CreatedAt = current.CreatedAt
	for _, f := range updated.Factors {
		if err := f.Validate(len(updated.Samples)); err != nil {
			return domain.Study{}, err
		}
	}
	updated.UpdatedAt = tx.now
	tx.state.studies[id] = cloneStudy(updated)
	tx.record(domain.EntityStudy, domain.ActionUpdate, before, cloneStudy(updated))
	return cloneStudy(updated), nil
}

// DeleteStudy removes a study together with its designs and result tables.
func (tx *transaction) DeleteStudy(id string) error {
	study, ok := tx.state.studies[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityStudy, ID: id}
	}
	for designID, d := range tx.state.designs {
		if d.StudyID == id {
			delete(tx.state.designs, designID)
		}
	}
	for tableID, r := range tx.state.results {
		if r.StudyID == id {
			delete(tx.state.results, tableID)
		}
	}
	delete(tx.state.studies, id)
	tx.record(domain.EntityStudy, domain.ActionDelete, cloneStudy(study), nil)
	return nil
}

// CreateDesign persists a design after checking its study reference.
func (tx *transaction) CreateDesign(design domain.Design) (domain.Design, error) {
	if _, ok := tx.state.studies[design.StudyID]; !ok {
		return domain.Design{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: design.StudyID}
	}
	if design.ID == "" {
		design.ID = newID()
	}
	if _, exists := tx.state.designs[design.ID]; exists {
		return domain.Design{}, fmt.Errorf("design %s already exists", design.ID)
	}
	design.CreatedAt = tx.now
	design.UpdatedAt = tx.now
	stored := cloneDesign(design)
	tx.state.designs[design.ID] = stored
	tx.record(domain.EntityDesign, domain.ActionCreate, nil, cloneDesign(stored))
	return cloneDesign(stored), nil
}

// DeleteDesign removes a design and the result tables produced from it.
func (tx *transaction) DeleteDesign(id string) error {
	design, ok := tx.state.designs[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityDesign, ID: id}
	}
	for tableID, r := range tx.state.results {
		if r.DesignID == id {
			delete(tx.state.results, tableID)
		}
	}
	delete(tx.state.designs, id)
	tx.record(domain.EntityDesign, domain.ActionDelete, cloneDesign(design), nil)
	return nil
}

// CreateResultTable persists a result table after checking its references.
func (tx *transaction) CreateResultTable(table domain.ResultTable) (domain.ResultTable, error) {
	if _, ok := tx.state.studies[table.StudyID]; !ok {
		return domain.ResultTable{}, domain.ErrNotFound{Entity: domain.EntityStudy, ID: table.StudyID}
	}
	if table.DesignID != "" {
		if _, ok := tx.state.designs[table.DesignID]; !ok {
			return domain.ResultTable{}, domain.ErrNotFound{Entity: domain.EntityDesign, ID: table.DesignID}
		}
	}
	if table.ID == "" {
		table.ID = newID()
	}
	if _, exists := tx.state.results[table.ID]; exists {
		return domain.ResultTable{}, fmt.Errorf("result table %s already exists", table.ID)
	}
	table.CreatedAt = tx.now
	table.UpdatedAt = tx.now
	stored := cloneResultTable(table)
	tx.state.results[table.ID] = stored
	tx.record(domain.EntityResultTable, domain.ActionCreate, nil, cloneResultTable(stored))
	return cloneResultTable(stored), nil
}

// DeleteResultTable removes a result table.
func (tx *transaction) DeleteResultTable(id string) error {
	table, ok := tx.state.results[id]
	if !ok {
		return domain.ErrNotFound{Entity: domain.EntityResultTable, ID: id}
	}
	delete(tx.state.results, id)
	tx.record(domain.EntityResultTable, domain.ActionDelete, cloneResultTable(table), nil)
	return nil
}

// FindStudy returns the in-flight study with the given id.
func (tx *transaction) FindStudy(id string) (domain.Study, bool) {
	study, ok := tx.state.studies[id]
	if !ok {
		return domain.Study{}, false
	}
	return cloneStudy(study), true
}

// FindDesign returns the in-flight design with the given id.
func (tx *transaction) FindDesign(id string) (domain.Design, bool) {
	design, ok := tx.state.designs[id]
	if !ok {
		return domain.Design{}, false
	}
	return cloneDesign(design), true
}

// view adapts a state to the read-only interfaces consumed by rules and
// service reads.
type view struct {
	state *state
}

var (
	_ domain.TransactionView = (*view)(nil)
	_ domain.RuleView        = (*view)(nil)
)

func (v *view) ListStudies() []domain.Study { return listStudies(v.state) }

func (v *view) FindStudy(id string) (domain.Study, bool) {
	study, ok := v.state.studies[id]
	if !ok {
		return domain.Study{}, false
	}
	return cloneStudy(study), true
}

func (v *view) ListDesigns() []domain.Design { return listDesigns(v.state) }

func (v *view) FindDesign(id string) (domain.Design, bool) {
	design, ok := v.state.designs[id]
	if !ok {
		return domain.Design{}, false
	}
	return cloneDesign(design), true
}

func (v *view) ListResultTables() []domain.ResultTable { return listResultTables(v.state) }

func (v *view) FindResultTable(id string) (domain.ResultTable, bool) {
	table, ok := v.state.results[id]
	if !ok {
		return domain.ResultTable{}, false
	}
	return cloneResultTable(table), true
}
