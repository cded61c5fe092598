package validation

import (
	"testing"

	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Email string `json:"email" binding:"required,email"`
	Age   int    `json:"age" binding:"omitempty,min=18"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(sample{Email: "ops@example.com"}))

	err := Struct(sample{Email: "nope", Age: 3})
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	assert.Contains(t, err.Error(), "email failed email")
	assert.Contains(t, err.Error(), "age failed min=18")
}

func TestID(t *testing.T) {
	assert.NoError(t, ID("drv_01JABCDEF"))
	for _, bad := range []string{"", "a/b", "x?y=1", "has space"} {
		assert.ErrorIs(t, ID(bad), xerrors.ErrInvalidInput, bad)
	}
}

func TestEmailPhonePassword(t *testing.T) {
	assert.NoError(t, Email("ops@example.com"))
	assert.Error(t, Email("ops@"))

	assert.NoError(t, Phone("+254700000001"))
	assert.Error(t, Phone("0700 000 001"))

	assert.NoError(t, Password("hunter22"))
	assert.Error(t, Password("123"))
}

func TestFile(t *testing.T) {
	assert.NoError(t, File("licence.PDF", 1024, DocumentTypes))
	assert.ErrorIs(t, File("licence.exe", 1024, DocumentTypes), xerrors.ErrFileType)
	assert.ErrorIs(t, File("licence.pdf", MaxUploadSize+1, DocumentTypes), xerrors.ErrFileTooLarge)
	assert.ErrorIs(t, File("empty.pdf", 0, DocumentTypes), xerrors.ErrInvalidInput)
	assert.NoError(t, File("anything.bin", 10, nil))
}
