package sections

import (
	"testing"

	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCapturesRows(t *testing.T) {
	lines := []string{
		"Summary",
		"Kingdom Perc",
		"Bacteria (taxid 2)\tViruses (taxid 10239)",
		"90.0\t10.0",
		"900\t100",
		"trailing text",
	}
	block, err := Extract(lines, "Kingdom Perc", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bacteria (taxid 2)", "Viruses (taxid 10239)"}, block.Labels())
	assert.Equal(t, []string{"90.0", "10.0"}, block.Values(0))
	assert.Equal(t, []string{"900", "100"}, block.Values(1))
	assert.Nil(t, block.Values(2))
	assert.Equal(t, 2, block.Width())
}

func TestExtractLastOccurrenceWins(t *testing.T) {
	lines := []string{
		"Rank Perc",
		"A\tB",
		"1\t2",
		"Rank Perc",
		"C\tD\tE",
		"3\t4\t5",
	}
	block, err := Extract(lines, "Rank Perc", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "D", "E"}, block.Labels())
	assert.Equal(t, []string{"3", "4", "5"}, block.Values(0))
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  error
	}{
		{
			name:  "header missing",
			lines: []string{"nothing here"},
			want:  qcerr.ErrSectionNotFound,
		},
		{
			name:  "truncated",
			lines: []string{"Rank Perc", "A\tB"},
			want:  qcerr.ErrSectionNotFound,
		},
		{
			name:  "column mismatch",
			lines: []string{"Rank Perc", "A\tB", "1"},
			want:  qcerr.ErrColumnCountMismatch,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(tc.lines, "Rank Perc", 2)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestExtractRejectsBadArguments(t *testing.T) {
	_, err := Extract([]string{"x"}, "", 2)
	assert.ErrorIs(t, err, qcerr.ErrSectionNotFound)
	_, err = Extract([]string{"x"}, "x", 1)
	assert.Error(t, err)
}

func TestSplitLines(t *testing.T) {
	assert.Equal(t, []string{"a", "b", ""}, SplitLines("a\r\nb\n\n"))
	assert.Equal(t, []string{"a"}, SplitLines("a"))
}
