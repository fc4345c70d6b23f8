package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/turbine/internal/deferral"
	"github.com/roach88/turbine/internal/generator"
)

func TestFatalErrorFormatting(t *testing.T) {
	err := newFinalizeError("autoservice", 3, errors.New("disk full"))
	assert.Equal(t, "FINALIZE_FAILED: generator autoservice (finalize): disk full", err.Error())

	err = newConfigError("", "bad table")
	assert.Equal(t, "CONFIG_INVALID: construct: bad table", err.Error())
}

func TestFatalErrorHelpersFollowWrapping(t *testing.T) {
	base := newFinalizeError("g", 1, errors.New("x"))
	wrapped := fmt.Errorf("run: %w", base)

	assert.True(t, IsFatal(wrapped))
	assert.True(t, IsFinalizeError(wrapped))
	assert.False(t, IsConfigError(wrapped))
	assert.False(t, IsFatal(errors.New("plain")))
}

func TestProcessFatalClassification(t *testing.T) {
	extraction := deferral.MarkFatal(&generator.ExtractionError{Decl: "pkg.A", Message: "missing type"})
	err := newProcessFatal("g", 2, extraction)
	assert.True(t, IsExtractionError(err))
	assert.Equal(t, ErrCodeExtractionFailed, err.Code)

	err = newProcessFatal("g", 2, errors.New("other"))
	assert.Equal(t, ErrCodeProcessFatal, err.Code)

	var ee *generator.ExtractionError
	assert.ErrorAs(t, newProcessFatal("g", 2, extraction), &ee)
	assert.Equal(t, "pkg.A", ee.Decl)
}
