package printer

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter(t *testing.T) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		err := p.Error("Test Error", "This is a test error", nil)
		require.Error(t, err)
		require.Equal(t, "Test Error", err.Error())
		assert.Equal(t, "Test Error\n\nThis is a test error\n", errOut.String())
	})

	t.Run("single suggestion", func(t *testing.T) {
		p, _, errOut := newTestPrinter(t)
		err := p.Error("Test Error", "Explanation", []string{"Try this fix"})
		require.Equal(t, "Test Error", err.Error())
		assert.Contains(t, errOut.String(), "\nTry this fix\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions", func(t *testing.T) {
		p, out, errOut := newTestPrinter(t)
		p.Error("Test Error", "Explanation", []string{"First option", "Second option"})
		assert.Contains(t, errOut.String(), "Either:\n  1. First option\n  2. Second option\n")
		assert.Empty(t, out.String())
	})
}

func TestErrorWithContext(t *testing.T) {
	p, _, errOut := newTestPrinter(t)
	err := p.ErrorWithContext("Test Error", "Explanation", map[string]string{
		"Workspace": "/path/to/workspace",
		"Line":      "7",
	}, nil)
	require.Equal(t, "Test Error", err.Error())
	assert.Contains(t, errOut.String(), "\n  Line: 7\n  Workspace: /path/to/workspace\n")
}

func TestMessages(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	p.Success("wrote %d files\n", 3)
	p.Success("✓ already marked\n")
	p.Warning("careful\n")
	p.Step("rendering\n")
	p.Info("plain %s\n", "text")

	assert.Equal(t, "✓ wrote 3 files\n✓ already marked\n⚠️  careful\n→ rendering\nplain text\n", out.String())
}

func TestDiff(t *testing.T) {
	p, out, _ := newTestPrinter(t)
	diff := "--- a/x.md\n+++ b/x.md\n@@ -1,2 +1,2 @@\n a\n-b\n+c\n"
	p.Diff(diff)
	assert.Equal(t, diff, out.String())
}
