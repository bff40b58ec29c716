package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisputeReason(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"trims spaces", "  работа не выполнена \n", "работа не выполнена", false},
		{"keeps inner newlines", "первое\nвторое", "первое\nвторое", false},
		{"empty", "   ", "", true},
		{"too short", "ок", "", true},
		{"too long", strings.Repeat("я", MaxDisputeReasonLength+1), "", true},
		{"control characters", "текст\x00спора", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DisputeReason(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBeneficiaryID(t *testing.T) {
	got, err := BeneficiaryID(" BENE_installer.01 ")
	require.NoError(t, err)
	assert.Equal(t, "BENE_installer.01", got)

	_, err = BeneficiaryID("")
	assert.Error(t, err)

	_, err = BeneficiaryID("bene id")
	assert.Error(t, err)

	_, err = BeneficiaryID(strings.Repeat("b", MaxBeneficiaryIDLength+1))
	assert.Error(t, err)
}
