package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "drivepass/pkg/domain-errors"
)

func TestNewCaseID(t *testing.T) {
	caseID := NewCaseID()
	assert.False(t, caseID.IsNil())
	assert.NotEqual(t, NewCaseID(), caseID)
}

func TestParseCaseID(t *testing.T) {
	valid := uuid.NewString()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid uuid", valid, false},
		{"empty", "", true},
		{"not a uuid", "case-123", true},
		{"nil uuid", "00000000-0000-0000-0000-000000000000", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caseID, err := ParseCaseID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, caseID.String())
		})
	}
}

func TestParseCaseIDRoundTrip(t *testing.T) {
	caseID := NewCaseID()
	parsed, err := ParseCaseID(caseID.String())
	require.NoError(t, err)
	assert.Equal(t, caseID, parsed)
}
