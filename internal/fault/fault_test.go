package fault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrapfRaisesFault(t *testing.T) {
	t.Parallel()

	defer func() {
		r := recover()
		require.NotNil(t, r, "Trapf must panic")
		f, ok := r.(*Fault)
		require.True(t, ok, "panic value must be *Fault")
		assert.Equal(t, CodeBadHandle, f.Code)
		assert.Equal(t, "handle 9 is dead", f.Detail)
	}()
	Trapf(CodeBadHandle, "handle %d is dead", 9)
}

func TestBoundaryRecoversFaultsOnly(t *testing.T) {
	t.Parallel()

	f := Boundary(func() {
		Trapf(CodeMemoryViolation, "range outside region")
	})
	require.NotNil(t, f)
	assert.Equal(t, CodeMemoryViolation, f.Code)

	assert.Nil(t, Boundary(func() {}))

	// Non-fault panics pass through untouched.
	assert.PanicsWithValue(t, "boom", func() {
		_ = Boundary(func() { panic("boom") })
	})
}

func TestCodeStrings(t *testing.T) {
	t.Parallel()

	codes := map[Code]string{
		CodeUnknownService:  "unknown-service",
		CodeUnauthorized:    "unauthorized",
		CodeVersionMismatch: "version-mismatch",
		CodeBadHandle:       "bad-handle",
		CodeMemoryViolation: "memory-violation",
		CodeVecOverflow:     "vec-overflow",
		CodeEnqueueFailed:   "enqueue-failed",
		Code(0):             "unknown",
	}
	for code, want := range codes {
		assert.Equal(t, want, code.String())
	}
}
