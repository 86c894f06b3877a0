package generator

import (
	"bytes"

	"github.com/pmezard/go-difflib/difflib"
)

// unifiedDiff returns a unified diff from before to after, labelled with the
// artifact's path relative to the workspace root. It returns "" when the two
// are equal. A nil before diffs against /dev/null.
func unifiedDiff(rel string, before, after []byte) (string, error) {
	if before != nil && bytes.Equal(before, after) {
		return "", nil
	}
	fromFile := "a/" + rel
	var a []string
	if before == nil {
		fromFile = "/dev/null"
	} else {
		a = difflib.SplitLines(string(before))
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        difflib.SplitLines(string(after)),
		FromFile: fromFile,
		ToFile:   "b/" + rel,
		Context:  3,
	})
}
