package core

import (
	"context"
	"errors"
	"sort"
	"testing"

	"contrastcore/internal/infra/persistence/memory"
	"contrastcore/pkg/design"
	"contrastcore/pkg/domain"
	"contrastcore/pkg/stats"
)

// fakeEngine returns canned rows and records the inputs it was handed.
type fakeEngine struct {
	rows         []domain.ResultRow
	seenDesign   domain.DesignMatrix
	seenCounts   stats.CountMatrix
	seenContrast domain.Contrast
	failAt       string
}

type fakeHandle struct{ name string }

func (h fakeHandle) EngineName() string { return h.name }

func (e *fakeEngine) EstimateDispersion(_ context.Context, counts stats.CountMatrix, d domain.DesignMatrix) (stats.DispersionModel, error) {
	if e.failAt == "dispersion" {
		return nil, errors.New("dispersion failed")
	}
	e.seenCounts = counts
	e.seenDesign = d
	return fakeHandle{name: "fake"}, nil
}

func (e *fakeEngine) FitModel(_ context.Context, _ stats.CountMatrix, _ stats.DispersionModel, d domain.DesignMatrix) (stats.FittedModel, error) {
	if e.failAt == "fit" {
		return nil, errors.New("fit failed")
	}
	return fakeHandle{name: "fake"}, nil
}

func (e *fakeEngine) LikelihoodRatioTest(_ context.Context, _ stats.FittedModel, contrast domain.Contrast) ([]domain.ResultRow, error) {
	if e.failAt == "lrt" {
		return nil, errors.New("lrt failed")
	}
	e.seenContrast = contrast
	out := append([]domain.ResultRow(nil), e.rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PValue < out[j].PValue })
	return out, nil
}

func (e *fakeEngine) AdjustPValues(rows []domain.ResultRow, method stats.AdjustMethod) ([]domain.ResultRow, error) {
	if method != stats.AdjustBH && method != stats.AdjustBonferroni {
		return nil, errors.New("unknown method")
	}
	out := append([]domain.ResultRow(nil), rows...)
	n := float64(len(out))
	for i := range out {
		adj := out[i].PValue * n / float64(i+1)
		if adj > 1 {
			adj = 1
		}
		out[i].AdjPValue = adj
	}
	return out, nil
}

func newTestService(t *testing.T, engine stats.Engine) *Service {
	t.Helper()
	store := memory.NewStore(domain.NewRulesEngine())
	return NewService(store, WithStatsEngine(engine))
}

func seedTwoFactorStudy(t *testing.T, svc *Service) Study {
	t.Helper()
	ctx := context.Background()
	ids := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11", "s12"}
	study, _, err := svc.CreateStudy(ctx, "salinity", ids)
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	study, _, err = svc.AddFactor(ctx, study.ID, "Treatment", "C", []design.Run{
		{Level: "C", Count: 3}, {Level: "T", Count: 3}, {Level: "C", Count: 3}, {Level: "T", Count: 3},
	})
	if err != nil {
		t.Fatalf("add treatment: %v", err)
	}
	study, _, err = svc.AddFactor(ctx, study.ID, "Location", "inland", []design.Run{
		{Level: "inland", Count: 6}, {Level: "beach", Count: 6},
	})
	if err != nil {
		t.Fatalf("add location: %v", err)
	}
	return study
}

func TestCreateStudyAndAddFactors(t *testing.T) {
	svc := newTestService(t, nil)
	study := seedTwoFactorStudy(t, svc)

	if len(study.Factors) != 2 {
		t.Fatalf("factors = %d, want 2", len(study.Factors))
	}
	treatment, _ := study.Factor("Treatment")
	if got := treatment.Assignments[3]; got != "T" {
		t.Fatalf("sample 4 treatment = %s, want T", got)
	}
	if _, _, err := svc.AddFactor(context.Background(), study.ID, "Treatment", "C", []design.Run{{Level: "C", Count: 12}}); err == nil {
		t.Fatal("expected duplicate factor name to be rejected")
	}
}

func TestAddFactorRejectsRunMismatch(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	study, _, err := svc.CreateStudy(ctx, "tiny", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	_, _, err = svc.AddFactor(ctx, study.ID, "Treatment", "C", []design.Run{{Level: "C", Count: 3}})
	var ige domain.InvalidGroupingError
	if !errors.As(err, &ige) {
		t.Fatalf("expected InvalidGroupingError, got %v", err)
	}
	if ige.Expected != 2 || ige.Got != 3 {
		t.Fatalf("unexpected grouping error: %+v", ige)
	}
}

func TestBuildDesignCombinedGroups(t *testing.T) {
	svc := newTestService(t, nil)
	study := seedTwoFactorStudy(t, svc)

	created, _, err := svc.BuildDesign(context.Background(), study.ID, ParamCombinedGroups)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}
	want := []string{"C.inland", "T.inland", "C.beach", "T.beach"}
	if len(created.Matrix.Columns) != len(want) {
		t.Fatalf("columns = %v", created.Matrix.Columns)
	}
	for i, col := range want {
		if created.Matrix.Columns[i] != col {
			t.Fatalf("column %d = %s, want %s", i, created.Matrix.Columns[i], col)
		}
	}
	stored, ok := svc.GetDesign(created.ID)
	if !ok || stored.StudyID != study.ID {
		t.Fatalf("design not committed: %+v", stored)
	}
}

func TestBuildDesignRequiresFactors(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	study, _, err := svc.CreateStudy(ctx, "bare", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("create study: %v", err)
	}
	if _, _, err := svc.BuildDesign(ctx, study.ID, ParamWithIntercept); err == nil {
		t.Fatal("expected factorless design to be rejected")
	}
}

func TestResolveContrastThroughService(t *testing.T) {
	svc := newTestService(t, nil)
	study := seedTwoFactorStudy(t, svc)
	ctx := context.Background()
	d, _, err := svc.BuildDesign(ctx, study.ID, ParamCombinedGroups)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}

	contrast, err := svc.ResolveContrast(ctx, d.ID, ContrastRequest{
		Factor: "Treatment", Target: "T", Baseline: "C",
		Within: map[string]string{"Location": "beach"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if contrast.IsCoefficient() {
		t.Fatalf("expected vector contrast, got coefficient %d", contrast.Coefficient)
	}
	want := []float64{0, 0, -1, 1}
	for i, w := range want {
		if contrast.Vector[i] != w {
			t.Fatalf("vector = %v, want %v", contrast.Vector, want)
		}
	}
}

func TestRunComparisonPersistsAdjustedRows(t *testing.T) {
	engine := &fakeEngine{rows: []domain.ResultRow{
		{FeatureID: "g2", LogFC: -1.0, PValue: 0.04},
		{FeatureID: "g1", LogFC: 2.5, PValue: 0.0001},
		{FeatureID: "g3", LogFC: 0.1, PValue: 0.9},
	}}
	svc := newTestService(t, engine)
	study := seedTwoFactorStudy(t, svc)
	ctx := context.Background()
	d, _, err := svc.BuildDesign(ctx, study.ID, ParamCombinedGroups)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}

	counts := stats.CountMatrix{
		Features: []string{"g1", "g2", "g3"},
		Samples:  study.SampleIDs(),
		Counts: [][]float64{
			{5, 9, 7, 40, 44, 39, 6, 8, 7, 41, 43, 40},
			{30, 28, 31, 12, 11, 13, 29, 30, 28, 12, 13, 11},
			{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10},
		},
	}
	req := ContrastRequest{Factor: "Treatment", Target: "T", Baseline: "C", Within: map[string]string{"Location": "inland"}}

	table, _, err := svc.RunComparison(ctx, d.ID, "t_vs_c_inland", req, counts, stats.AdjustBH)
	if err != nil {
		t.Fatalf("run comparison: %v", err)
	}
	if table.Name != "t_vs_c_inland" || table.DesignID != d.ID {
		t.Fatalf("unexpected table: %+v", table)
	}
	if len(table.Rows) != 3 || table.Rows[0].FeatureID != "g1" {
		t.Fatalf("rows not in significance order: %+v", table.Rows)
	}
	if table.Rows[0].AdjPValue == 0 {
		t.Fatal("adjusted p-values missing")
	}
	if engine.seenDesign.NCols() != 4 {
		t.Fatalf("engine saw %d design columns", engine.seenDesign.NCols())
	}
	if engine.seenContrast.Request.Factor != "Treatment" {
		t.Fatalf("engine saw contrast %+v", engine.seenContrast)
	}

	stored, ok := svc.GetResultTable(table.ID)
	if !ok {
		t.Fatal("result table not committed")
	}
	if stored.Contrast.IsCoefficient() {
		t.Fatal("stored contrast lost its vector")
	}
}

func TestRunComparisonPropagatesEngineFailure(t *testing.T) {
	engine := &fakeEngine{failAt: "fit"}
	svc := newTestService(t, engine)
	study := seedTwoFactorStudy(t, svc)
	ctx := context.Background()
	d, _, err := svc.BuildDesign(ctx, study.ID, ParamCombinedGroups)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}

	counts := stats.CountMatrix{Features: []string{"g1"}, Samples: study.SampleIDs(), Counts: [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}}
	_, _, err = svc.RunComparison(ctx, d.ID, "x", ContrastRequest{Factor: "Treatment", Target: "T", Baseline: "C", Within: map[string]string{"Location": "inland"}}, counts, stats.AdjustBH)
	if err == nil {
		t.Fatal("expected engine failure to propagate")
	}
	if got := len(svc.ListResultTables()); got != 0 {
		t.Fatalf("failed run persisted %d tables", got)
	}
}

func TestRunComparisonRequiresEngine(t *testing.T) {
	svc := newTestService(t, nil)
	_, _, err := svc.RunComparison(context.Background(), "d", "x", ContrastRequest{}, stats.CountMatrix{}, stats.AdjustBH)
	if err == nil {
		t.Fatal("expected missing engine error")
	}
}

func TestSignificantAndIntersectOverStoredTables(t *testing.T) {
	engine := &fakeEngine{rows: []domain.ResultRow{
		{FeatureID: "g1", PValue: 0.001},
		{FeatureID: "g2", PValue: 0.002},
		{FeatureID: "g3", PValue: 0.8},
	}}
	svc := newTestService(t, engine)
	study := seedTwoFactorStudy(t, svc)
	ctx := context.Background()
	d, _, err := svc.BuildDesign(ctx, study.ID, ParamCombinedGroups)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}
	counts := stats.CountMatrix{Features: []string{"g1", "g2", "g3"}, Samples: study.SampleIDs(), Counts: [][]float64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}}
	reqA := ContrastRequest{Factor: "Treatment", Target: "T", Baseline: "C", Within: map[string]string{"Location": "inland"}}
	reqB := ContrastRequest{Factor: "Treatment", Target: "T", Baseline: "C", Within: map[string]string{"Location": "beach"}}

	a, _, err := svc.RunComparison(ctx, d.ID, "inland", reqA, counts, stats.AdjustBH)
	if err != nil {
		t.Fatalf("run a: %v", err)
	}
	engine.rows = []domain.ResultRow{
		{FeatureID: "g2", PValue: 0.001},
		{FeatureID: "g4", PValue: 0.003},
		{FeatureID: "g1", PValue: 0.7},
	}
	b, _, err := svc.RunComparison(ctx, d.ID, "beach", reqB, counts, stats.AdjustBH)
	if err != nil {
		t.Fatalf("run b: %v", err)
	}

	sig, err := svc.SignificantFeatures(ctx, a.ID, 0.05)
	if err != nil {
		t.Fatalf("significant: %v", err)
	}
	if len(sig) != 2 || sig[0].FeatureID != "g1" || sig[1].FeatureID != "g2" {
		t.Fatalf("significant prefix = %+v", sig)
	}

	n, err := svc.CountSignificant(ctx, a.ID, 0.05)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, err %v", n, err)
	}

	shared, err := svc.IntersectResults(ctx, a.ID, b.ID, 0.05)
	if err != nil {
		t.Fatalf("intersect: %v", err)
	}
	if len(shared) != 1 || shared[0].FeatureID != "g2" {
		t.Fatalf("intersection = %+v", shared)
	}
}

func TestSignificantFeaturesMissingTable(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.SignificantFeatures(context.Background(), "missing", 0.05)
	var nf ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != EntityResultTable {
		t.Fatalf("expected result-table ErrNotFound, got %v", err)
	}
}

func TestDeleteStudyThroughService(t *testing.T) {
	svc := newTestService(t, nil)
	study := seedTwoFactorStudy(t, svc)
	ctx := context.Background()
	d, _, err := svc.BuildDesign(ctx, study.ID, ParamWithIntercept)
	if err != nil {
		t.Fatalf("build design: %v", err)
	}
	if _, err := svc.DeleteStudy(ctx, study.ID); err != nil {
		t.Fatalf("delete study: %v", err)
	}
	if _, ok := svc.GetDesign(d.ID); ok {
		t.Fatal("design survived study deletion")
	}
}

