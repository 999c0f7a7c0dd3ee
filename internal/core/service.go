// Package core wires the design, contrast and result operations into a
// transactional service over a persistent store, with pluggable logging,
// metrics and tracing.
package core

import (
	"context"
	"fmt"
	"time"

	"contrastcore/pkg/design"
	"contrastcore/pkg/stats"
)

// Service exposes higher-level transactional operations over studies,
// designs and result tables. Model fitting is delegated to the configured
// stats engine.
type Service struct {
	store   PersistentStore
	engine  stats.Engine
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	clock   Clock
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger installs a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder installs a metrics recorder.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer installs a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithStatsEngine installs the statistical engine used by RunComparison.
func WithStatsEngine(engine stats.Engine) Option {
	return func(s *Service) { s.engine = engine }
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		clock:   ClockFunc(func() time.Time { return time.Now().UTC() }),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore { return s.store }

func (s *Service) observe(ctx context.Context, op string) (context.Context, func(err error)) {
	start := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	return ctx, func(err error) {
		duration := s.clock.Now().Sub(start)
		s.metrics.Observe(ctx, op, err == nil, duration)
		span.End(err)
		if err != nil {
			s.logger.Error(op, "error", err, "duration_ms", duration.Milliseconds())
			return
		}
		s.logger.Debug(op, "duration_ms", duration.Milliseconds())
	}
}

// CreateStudy persists a study over an ordered sample list. The list fixes
// the row order of every design built for the study.
func (s *Service) CreateStudy(ctx context.Context, name string, sampleIDs []string) (Study, Result, error) {
	ctx, done := s.observe(ctx, "create_study")
	var created Study
	samples := make([]Sample, len(sampleIDs))
	for i, id := range sampleIDs {
		samples[i] = Sample{ID: id}
	}
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateStudy(Study{Name: name, Samples: samples})
		return err
	})
	done(err)
	return created, res, err
}

// AddFactor attaches a factor encoded from contiguous level runs to an
// existing study.
func (s *Service) AddFactor(ctx context.Context, studyID, name, reference string, runs []design.Run) (Study, Result, error) {
	ctx, done := s.observe(ctx, "add_factor")
	var updated Study
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateStudy(studyID, func(study *Study) error {
			if _, exists := study.Factor(name); exists {
				return fmt.Errorf("factor %s already defined on study %s", name, studyID)
			}
			factor, err := design.EncodeFactor(name, reference, runs, len(study.Samples))
			if err != nil {
				return err
			}
			study.Factors = append(study.Factors, factor)
			return nil
		})
		return err
	})
	done(err)
	return updated, res, err
}

// DeleteStudy removes a study together with its designs and result tables.
func (s *Service) DeleteStudy(ctx context.Context, id string) (Result, error) {
	ctx, done := s.observe(ctx, "delete_study")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteStudy(id)
	})
	done(err)
	return res, err
}

// BuildDesign constructs and persists a design matrix for the study under
// the requested parametrization. Rank deficiencies surface as
// domain.RankDeficientDesignError before anything is stored.
func (s *Service) BuildDesign(ctx context.Context, studyID string, p Parametrization) (Design, Result, error) {
	ctx, done := s.observe(ctx, "build_design")
	var created Design
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		study, ok := tx.FindStudy(studyID)
		if !ok {
			return ErrNotFound{Entity: EntityStudy, ID: studyID}
		}
		if len(study.Factors) == 0 {
			return fmt.Errorf("study %s has no factors to build a design from", studyID)
		}
		matrix, err := design.Build(study.SampleIDs(), study.Factors, p)
		if err != nil {
			return err
		}
		created, err = tx.CreateDesign(Design{StudyID: studyID, Matrix: matrix})
		return err
	})
	done(err)
	return created, res, err
}

// DeleteDesign removes a design and the result tables produced from it.
func (s *Service) DeleteDesign(ctx context.Context, id string) (Result, error) {
	ctx, done := s.observe(ctx, "delete_design")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteDesign(id)
	})
	done(err)
	return res, err
}

// ResolveContrast resolves a symbolic comparison against a stored design.
func (s *Service) ResolveContrast(ctx context.Context, designID string, req ContrastRequest) (Contrast, error) {
	ctx, done := s.observe(ctx, "resolve_contrast")
	var contrast Contrast
	err := s.store.View(ctx, func(v TransactionView) error {
		d, ok := v.FindDesign(designID)
		if !ok {
			return ErrNotFound{Entity: EntityDesign, ID: designID}
		}
		study, ok := v.FindStudy(d.StudyID)
		if !ok {
			return ErrNotFound{Entity: EntityStudy, ID: d.StudyID}
		}
		var err error
		contrast, err = design.ResolveContrast(d.Matrix, study.Factors, req)
		return err
	})
	done(err)
	return contrast, err
}

// RunComparison resolves the contrast, drives the stats engine through
// dispersion estimation, model fitting and the likelihood-ratio test,
// adjusts p-values and persists the resulting table under the given name.
func (s *Service) RunComparison(ctx context.Context, designID, name string, req ContrastRequest, counts stats.CountMatrix, method stats.AdjustMethod) (ResultTable, Result, error) {
	ctx, done := s.observe(ctx, "run_comparison")
	var table ResultTable
	if s.engine == nil {
		err := fmt.Errorf("no stats engine configured")
		done(err)
		return table, Result{}, err
	}
	if err := counts.Validate(); err != nil {
		done(err)
		return table, Result{}, err
	}
	if method == "" {
		method = stats.AdjustBH
	}

	var d Design
	var study Study
	if err := s.store.View(ctx, func(v TransactionView) error {
		var ok bool
		d, ok = v.FindDesign(designID)
		if !ok {
			return ErrNotFound{Entity: EntityDesign, ID: designID}
		}
		study, ok = v.FindStudy(d.StudyID)
		if !ok {
			return ErrNotFound{Entity: EntityStudy, ID: d.StudyID}
		}
		return nil
	}); err != nil {
		done(err)
		return table, Result{}, err
	}

	contrast, err := design.ResolveContrast(d.Matrix, study.Factors, req)
	if err != nil {
		done(err)
		return table, Result{}, err
	}

	dispersion, err := s.engine.EstimateDispersion(ctx, counts, d.Matrix)
	if err != nil {
		done(err)
		return table, Result{}, fmt.Errorf("estimate dispersion: %w", err)
	}
	fitted, err := s.engine.FitModel(ctx, counts, dispersion, d.Matrix)
	if err != nil {
		done(err)
		return table, Result{}, fmt.Errorf("fit model: %w", err)
	}
	rows, err := s.engine.LikelihoodRatioTest(ctx, fitted, contrast)
	if err != nil {
		done(err)
		return table, Result{}, fmt.Errorf("likelihood ratio test: %w", err)
	}
	rows, err = s.engine.AdjustPValues(rows, method)
	if err != nil {
		done(err)
		return table, Result{}, fmt.Errorf("adjust p-values: %w", err)
	}

	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var txErr error
		table, txErr = tx.CreateResultTable(ResultTable{
			StudyID:  d.StudyID,
			DesignID: designID,
			Name:     name,
			Contrast: contrast,
			Rows:     rows,
		})
		return txErr
	})
	done(err)
	return table, res, err
}

// SignificantFeatures returns the stable FDR prefix of a stored result table.
func (s *Service) SignificantFeatures(ctx context.Context, tableID string, tau float64) ([]ResultRow, error) {
	ctx, done := s.observe(ctx, "significant_features")
	var rows []ResultRow
	err := s.store.View(ctx, func(v TransactionView) error {
		table, ok := v.FindResultTable(tableID)
		if !ok {
			return ErrNotFound{Entity: EntityResultTable, ID: tableID}
		}
		var err error
		rows, err = stats.Significant(table.Rows, tau)
		return err
	})
	done(err)
	return rows, err
}

// CountSignificant returns the number of features passing the threshold in a
// stored result table.
func (s *Service) CountSignificant(ctx context.Context, tableID string, tau float64) (int, error) {
	ctx, done := s.observe(ctx, "count_significant")
	var n int
	err := s.store.View(ctx, func(v TransactionView) error {
		table, ok := v.FindResultTable(tableID)
		if !ok {
			return ErrNotFound{Entity: EntityResultTable, ID: tableID}
		}
		var err error
		n, err = stats.CountSignificant(table.Rows, tau)
		return err
	})
	done(err)
	return n, err
}

// IntersectResults returns the significant features shared by two stored
// result tables, thresholded at tau, carrying the first table's statistics
// in the first table's order.
func (s *Service) IntersectResults(ctx context.Context, tableAID, tableBID string, tau float64) ([]ResultRow, error) {
	ctx, done := s.observe(ctx, "intersect_results")
	var rows []ResultRow
	err := s.store.View(ctx, func(v TransactionView) error {
		a, ok := v.FindResultTable(tableAID)
		if !ok {
			return ErrNotFound{Entity: EntityResultTable, ID: tableAID}
		}
		b, ok := v.FindResultTable(tableBID)
		if !ok {
			return ErrNotFound{Entity: EntityResultTable, ID: tableBID}
		}
		sigA, err := stats.Significant(a.Rows, tau)
		if err != nil {
			return err
		}
		sigB, err := stats.Significant(b.Rows, tau)
		if err != nil {
			return err
		}
		rows = stats.Intersect(sigA, sigB)
		return nil
	})
	done(err)
	return rows, err
}

// DeleteResultTable removes a stored result table.
func (s *Service) DeleteResultTable(ctx context.Context, id string) (Result, error) {
	ctx, done := s.observe(ctx, "delete_result_table")
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteResultTable(id)
	})
	done(err)
	return res, err
}

// GetStudy returns a committed study.
func (s *Service) GetStudy(id string) (Study, bool) { return s.store.GetStudy(id) }

// ListStudies returns all committed studies ordered by id.
func (s *Service) ListStudies() []Study { return s.store.ListStudies() }

// GetDesign returns a committed design.
func (s *Service) GetDesign(id string) (Design, bool) { return s.store.GetDesign(id) }

// ListDesigns returns all committed designs ordered by id.
func (s *Service) ListDesigns() []Design { return s.store.ListDesigns() }

// GetResultTable returns a committed result table.
func (s *Service) GetResultTable(id string) (ResultTable, bool) { return s.store.GetResultTable(id) }

// ListResultTables returns all committed result tables ordered by id.
func (s *Service) ListResultTables() []ResultTable { return s.store.ListResultTables() }
