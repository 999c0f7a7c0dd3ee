package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"contrastcore/pkg/domain"

	"go.uber.org/zap"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	logger = zap.NewNop()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("contrastctl %v: %v\noutput: %s", args, err, out.String())
	}
	return out.String()
}

func TestParseRuns(t *testing.T) {
	runs, err := parseRuns("C:3, T:3,C:2")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(runs) != 3 || runs[1].Level != "T" || runs[2].Count != 2 {
		t.Fatalf("runs = %+v", runs)
	}
	for _, bad := range []string{"", "C", "C:zero", "C:-1", "C:0"} {
		if _, err := parseRuns(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestParseWithin(t *testing.T) {
	within, err := parseWithin([]string{"Location=beach", "Batch=b1"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if within["Location"] != "beach" || within["Batch"] != "b1" {
		t.Fatalf("within = %v", within)
	}
	if _, err := parseWithin([]string{"Location"}); err == nil {
		t.Fatal("expected bare pair to be rejected")
	}
}

func TestParseParametrization(t *testing.T) {
	if _, err := parseParametrization("with-intercept"); err != nil {
		t.Fatalf("with-intercept: %v", err)
	}
	if _, err := parseParametrization("ols"); err == nil {
		t.Fatal("expected unknown parametrization to be rejected")
	}
}

func TestStudyDesignContrastWorkflow(t *testing.T) {
	t.Setenv("CONTRASTCORE_STORAGE_DRIVER", "sqlite")
	t.Setenv("CONTRASTCORE_SQLITE_PATH", filepath.Join(t.TempDir(), "state.db"))

	out := execute(t, "study", "create", "--name", "salinity",
		"--samples", "s1,s2,s3,s4,s5,s6,s7,s8,s9,s10,s11,s12")
	var study domain.Study
	if err := json.Unmarshal([]byte(out), &study); err != nil {
		t.Fatalf("decode study: %v\noutput: %s", err, out)
	}
	if study.ID == "" || len(study.Samples) != 12 {
		t.Fatalf("study = %+v", study)
	}

	execute(t, "study", "add-factor", "--study", study.ID,
		"--name", "Treatment", "--reference", "C", "--runs", "C:3,T:3,C:3,T:3")
	execute(t, "study", "add-factor", "--study", study.ID,
		"--name", "Location", "--reference", "inland", "--runs", "inland:6,beach:6")

	out = execute(t, "design", "build", "--study", study.ID,
		"--parametrization", "no-intercept-combined-group")
	var design domain.Design
	if err := json.Unmarshal([]byte(out), &design); err != nil {
		t.Fatalf("decode design: %v\noutput: %s", err, out)
	}
	wantCols := []string{"C.inland", "T.inland", "C.beach", "T.beach"}
	for i, col := range wantCols {
		if design.Matrix.Columns[i] != col {
			t.Fatalf("columns = %v, want %v", design.Matrix.Columns, wantCols)
		}
	}

	out = execute(t, "contrast", "resolve", "--design", design.ID,
		"--factor", "Treatment", "--target", "T", "--baseline", "C",
		"--within", "Location=beach")
	var contrast domain.Contrast
	if err := json.Unmarshal([]byte(out), &contrast); err != nil {
		t.Fatalf("decode contrast: %v\noutput: %s", err, out)
	}
	want := []float64{0, 0, -1, 1}
	if len(contrast.Vector) != len(want) {
		t.Fatalf("contrast = %+v", contrast)
	}
	for i, w := range want {
		if contrast.Vector[i] != w {
			t.Fatalf("vector = %v, want %v", contrast.Vector, want)
		}
	}
}

func TestCountsImportReportsShape(t *testing.T) {
	t.Setenv("CONTRASTCORE_BLOB_DRIVER", "fs")
	t.Setenv("CONTRASTCORE_BLOB_FS_ROOT", t.TempDir())

	dir := t.TempDir()
	path := filepath.Join(dir, "counts.tsv")
	tsv := "gene_id\ts1\ts2\ng1\t10\t20\ng2\t0\t0\n"
	if err := os.WriteFile(path, []byte(tsv), 0o600); err != nil {
		t.Fatalf("write tsv: %v", err)
	}

	out := execute(t, "counts", "import", path, "--descriptors", "1", "--key", "")
	var shape map[string]int
	if err := json.Unmarshal([]byte(out), &shape); err != nil {
		t.Fatalf("decode shape: %v\noutput: %s", err, out)
	}
	if shape["features"] != 2 || shape["samples"] != 2 {
		t.Fatalf("shape = %v", shape)
	}
}
