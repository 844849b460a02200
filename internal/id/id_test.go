package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.NotEqual(t, a, b)
	assert.True(t, Valid(a))
	assert.False(t, Valid("not-a-uuid"))
}

func TestFormatReference(t *testing.T) {
	tests := []struct {
		prefix, scope string
		seq           int
		want          string
	}{
		{"IBT", "BR-A", 1, "IBT-BR_A-000001"},
		{"IBT", "kla", 42, "IBT-KLA-000042"},
		{"IBT", "main store", 123456, "IBT-MAINSTORE-123456"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatReference(tt.prefix, tt.scope, tt.seq))
	}
}

func TestParseReference(t *testing.T) {
	prefix, scope, seq, err := ParseReference("IBT-BR_A-000017")
	require.NoError(t, err)
	assert.Equal(t, "IBT", prefix)
	assert.Equal(t, "BR_A", scope)
	assert.Equal(t, 17, seq)
}

func TestParseReference_Errors(t *testing.T) {
	badInputs := []string{
		"",
		"IBT",
		"IBT-000001",
		"IBT-KLA-",
		"IBT-KLA-xx",
		"-KLA-000001",
	}
	for _, input := range badInputs {
		_, _, _, err := ParseReference(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestSequenceName(t *testing.T) {
	assert.Equal(t, "ibt:org1:BR-A", SequenceName("IBT", "org1", "BR-A"))
}
