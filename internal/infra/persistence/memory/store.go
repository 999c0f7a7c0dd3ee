// Package memory provides the in-memory implementation of the study
// persistence store. Durable backends reuse it for transactional semantics
// and snapshot the committed state after each transaction.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"contrastcore/pkg/domain"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

type state struct {
	studies map[string]domain.Study
	designs map[string]domain.Design
	results map[string]domain.ResultTable
}

func newState() state {
	return state{
		studies: make(map[string]domain.Study),
		designs: make(map[string]domain.Design),
		results: make(map[string]domain.ResultTable),
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.studies {
		out.studies[k] = cloneStudy(v)
	}
	for k, v := range s.designs {
		out.designs[k] = cloneDesign(v)
	}
	for k, v := range s.results {
		out.results[k] = cloneResultTable(v)
	}
	return out
}

// Snapshot captures a point-in-time clone of the store state for durable
// backends.
type Snapshot struct {
	Studies map[string]domain.Study       `json:"studies"`
	Designs map[string]domain.Design      `json:"designs"`
	Results map[string]domain.ResultTable `json:"results"`
}

// Store is the in-memory persistent store.
type Store struct {
	mu     sync.RWMutex
	state  state
	engine *domain.RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// RulesEngine exposes the engine so callers can register additional rules.
func (s *Store) RulesEngine() *domain.RulesEngine { return s.engine }

func newID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// ExportState returns a deep copy of the committed state.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cloned := s.state.clone()
	return Snapshot{Studies: cloned.studies, Designs: cloned.designs, Results: cloned.results}
}

// ImportState replaces the committed state with the snapshot contents.
func (s *Store) ImportState(snapshot Snapshot) {
	st := newState()
	for k, v := range snapshot.Studies {
		st.studies[k] = cloneStudy(v)
	}
	for k, v := range snapshot.Designs {
		st.designs[k] = cloneDesign(v)
	}
	for k, v := range snapshot.Results {
		st.results[k] = cloneResultTable(v)
	}
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RunInTransaction executes fn within a transactional copy of the state,
// evaluates the rules engine over the result, and commits only when no
// blocking violation was raised.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}

	var result domain.Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, &view{state: &tx.state}, tx.changes)
		if err != nil {
			return domain.Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(domain.TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(&view{state: &snapshot})
}

// GetStudy returns the committed study with the given id.
func (s *Store) GetStudy(id string) (domain.Study, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	study, ok := s.state.studies[id]
	if !ok {
		return domain.Study{}, false
	}
	return cloneStudy(study), true
}

// ListStudies returns all committed studies ordered by id.
func (s *Store) ListStudies() []domain.Study {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStudies(&s.state)
}

// GetDesign returns the committed design with the given id.
func (s *Store) GetDesign(id string) (domain.Design, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	design, ok := s.state.designs[id]
	if !ok {
		return domain.Design{}, false
	}
	return cloneDesign(design), true
}

// ListDesigns returns all committed designs ordered by id.
func (s *Store) ListDesigns() []domain.Design {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDesigns(&s.state)
}

// GetResultTable returns the committed result table with the given id.
func (s *Store) GetResultTable(id string) (domain.ResultTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, ok := s.state.results[id]
	if !ok {
		return domain.ResultTable{}, false
	}
	return cloneResultTable(table), true
}

// ListResultTables returns all committed result tables ordered by id.
func (s *Store) ListResultTables() []domain.ResultTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listResultTables(&s.state)
}

func listStudies(st *state) []domain.Study {
	out := make([]domain.Study, 0, len(st.studies))
	for _, v := range st.studies {
		out = append(out, cloneStudy(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listDesigns(st *state) []domain.Design {
	out := make([]domain.Design, 0, len(st.designs))
	for _, v := range st.designs {
		out = append(out, cloneDesign(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func listResultTables(st *state) []domain.ResultTable {
	out := make([]domain.ResultTable, 0, len(st.results))
	for _, v := range st.results {
		out = append(out, cloneResultTable(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
