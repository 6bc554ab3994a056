// Package shared holds helpers used by more than one internal package.
//
// # Structure
//
//   - testutil: survey fixtures, fixture writers and a buffered slog handler
//     with log assertions
//
// # Usage Guidelines
//
// This package should only contain:
//
//  1. Test utilities used by multiple packages
//  2. Generic helpers with no pipeline logic
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    dir := t.TempDir()
//	    paths := testutil.WriteSurveyDatasets(t, dir)
//	    logger, handler := testutil.NewTestLogger(t)
//	    // ...
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
