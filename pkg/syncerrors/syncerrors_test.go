package syncerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WrapsCauseAndKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := New("dbsync.users.list", KindUnreachable, cause)

	assert.Equal(t, KindUnreachable, err.Kind)
	assert.Equal(t, "dbsync.users.list", err.Op)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Unreachable")
}

func TestNew_SynthesizesCauseWhenNil(t *testing.T) {
	err := New("dbsync.users.create", KindConflict, nil)
	assert.NotNil(t, err.Unwrap())
	assert.Contains(t, err.Error(), "Conflict")
}

func TestIs_MatchesWrappedKind(t *testing.T) {
	err := New("dbsync.projects.get", KindNotFound, nil)
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindConflict))
}

func TestIs_FalseForPlainError(t *testing.T) {
	assert.False(t, Is(errors.New("boom"), KindInternal))
}

func TestClassify_RetryableKinds(t *testing.T) {
	assert.Equal(t, DispositionRetry, Classify(KindUnreachable))
	assert.Equal(t, DispositionRetry, Classify(KindInternal))
}

func TestClassify_UnauthorizedNeedsReauth(t *testing.T) {
	assert.Equal(t, DispositionReauth, Classify(KindUnauthorized))
	assert.NotEqual(t, DispositionRetry, Classify(KindUnauthorized))
}

func TestClassify_FatalKinds(t *testing.T) {
	assert.Equal(t, DispositionFatal, Classify(KindEmptyResponse))
	assert.Equal(t, DispositionFatal, Classify(KindBadRequest))
	assert.Equal(t, DispositionFatal, Classify(KindConflict))
	assert.Equal(t, DispositionFatal, Classify(KindNotFound))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "Unauthorized", KindUnauthorized.String())
	assert.Equal(t, "Unreachable", KindUnreachable.String())
	assert.Equal(t, "NotFound", KindNotFound.String())
}
