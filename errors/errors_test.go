package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conveyor-ci/conveyor/errors"
)

func TestErrorFormatting(t *testing.T) {
	cause := stderrors.New("connection refused")

	tests := []struct {
		name string
		err  *errors.Error
		want string
	}{
		{
			name: "op and cause",
			err:  errors.Wrap(cause, errors.CodeNotFound, "artifact.Get", "fetching bundle"),
			want: "artifact.Get: fetching bundle: connection refused",
		},
		{
			name: "op only",
			err:  errors.New(errors.CodeInvalidConfig, "runner.Run", "unresolved placeholder"),
			want: "runner.Run: unresolved placeholder",
		},
		{
			name: "message only",
			err:  &errors.Error{Msg: "bare message"},
			want: "bare message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodeOf(t *testing.T) {
	cause := stderrors.New("boom")
	classified := errors.Wrap(cause, errors.CodeTagConflict, "tag.Reserve", "label taken")
	wrapped := fmt.Errorf("publish stage: %w", classified)

	assert.Equal(t, errors.CodeTagConflict, errors.CodeOf(wrapped))
	assert.Equal(t, errors.CodeInternal, errors.CodeOf(cause))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(nil))
}

func TestHasCodeThroughChain(t *testing.T) {
	err := fmt.Errorf("outer: %w",
		errors.New(errors.CodeStageNotRun, "scheduler", "export never ran"))

	assert.True(t, errors.HasCode(err, errors.CodeStageNotRun))
	assert.False(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "op", "msg"))
}

func TestRetryable(t *testing.T) {
	assert.True(t, errors.CodeTagConflict.Retryable())
	assert.False(t, errors.CodeToolFailed.Retryable())
	assert.False(t, errors.CodeInvalidConfig.Retryable())
}
