package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	err := New(ErrorTypeConfig, SeverityCritical, "rules file missing")
	assert.Equal(t, "rules file missing", err.Error())
	assert.True(t, err.IsFatal())

	wrapped := Wrap(stderrors.New("no such file"), ErrorTypeConfig, SeverityCritical, "read rules")
	assert.Equal(t, "read rules: no such file", wrapped.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeStorage, SeverityHigh, "save"))
}

func TestIsMatchesByType(t *testing.T) {
	storageErr := Storagef(stderrors.New("connection refused"), "save signature")

	assert.True(t, stderrors.Is(storageErr, New(ErrorTypeStorage, SeverityLow, "")))
	assert.False(t, stderrors.Is(storageErr, New(ErrorTypeConfig, SeverityLow, "")))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Storagef(cause, "save run")
	assert.ErrorIs(t, err, cause)
}

func TestDetailedString(t *testing.T) {
	err := Configf("thresholds: weights.minhash must be in [0,1], got %v", 1.5).
		WithContext("file", "thresholds.yaml")

	s := err.DetailedString()
	assert.Contains(t, s, "[CRITICAL]")
	assert.Contains(t, s, "[CONFIG]")
	assert.Contains(t, s, "thresholds.yaml")
}
