package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edgenode/jsruntime/edgejs/msg"
)

func TestClassifyWrappedError(t *testing.T) {
	err := New(msg.ErrNotFound, errors.New("missing"))
	assert.Equal(t, msg.ErrNotFound, Classify(err))
}

func TestClassifyUnwrappedErrorDefaultsInternal(t *testing.T) {
	assert.Equal(t, msg.ErrInternal, Classify(errors.New("boom")))
}

func TestClassifyStringFlattenedErrorDefaultsInternal(t *testing.T) {
	inner := New(msg.ErrIO, errors.New("disk full"))
	wrapped := errors.New("context: " + inner.Error())
	assert.Equal(t, msg.ErrInternal, Classify(wrapped))
}

func TestMessageUnwrapsUnderlyingCause(t *testing.T) {
	err := New(msg.ErrParse, errors.New("bad json"))
	assert.Equal(t, "bad json", Message(err))
}

func TestSentinelsCarryStableKinds(t *testing.T) {
	assert.Equal(t, msg.ErrNotFound, Classify(ErrNotFound))
	assert.Equal(t, msg.ErrPermissionDenied, Classify(ErrPermissionDenied))
	assert.Equal(t, msg.ErrUnavailable, Classify(ErrUnavailable))
	assert.Equal(t, msg.ErrCanceled, Classify(ErrCanceled))
}
