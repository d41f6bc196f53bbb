package clierr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_ExitCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{InvalidInput, ExitSetup},
		{StagingNotClean, ExitSetup},
		{StagingLocked, ExitSetup},
		{NameCollision, ExitSetup},
		{SetupFailed, ExitSetup},
		{InternalError, ExitInternal},
		{"SOMETHING_ELSE", ExitGeneral},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").ExitCode())
		})
	}
}

func TestWrap_Unwraps(t *testing.T) {
	err := Wrap(SetupFailed, os.ErrPermission, "creating symlink directory")
	assert.Equal(t, "creating symlink directory: "+os.ErrPermission.Error(), err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)

	var cliErr *Error
	assert.True(t, errors.As(fmt.Errorf("startup: %w", err), &cliErr))
	assert.Equal(t, SetupFailed, cliErr.Code)
}

func TestNewf_WithDetails(t *testing.T) {
	err := Newf(StagingNotClean, "file in symlink dir is not a symlink: %s", "stage/conf.py").
		WithDetails(map[string]any{"path": "stage/conf.py"})
	assert.Equal(t, "file in symlink dir is not a symlink: stage/conf.py", err.Error())
	assert.Equal(t, "stage/conf.py", err.Details["path"])
	assert.True(t, err.IsSetup())
}

func TestSilentError(t *testing.T) {
	assert.Equal(t, "exit 2", (&SilentError{Code: 2}).Error())
}
