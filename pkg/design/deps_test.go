package design_test

import (
	"testing"

	"contrastcore/testutil"
)

// Design construction is pure computation over domain types; storage and
// transport must not leak in.
func TestDesignDoesNotImportInfrastructure(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.InternalImportForbidden,
		"design layer is independent of storage and transport")
}
