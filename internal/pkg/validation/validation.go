// Package validation checks console input before it is dispatched. DTOs carry
// gin-style `binding` tags so the same rules run here and in the mock
// backend's request binding.
package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	xerrors "dispatch-console/internal/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// MaxUploadSize bounds document uploads.
const MaxUploadSize = 10 << 20

// DocumentTypes are the extensions accepted for driver documents.
var DocumentTypes = []string{".pdf", ".jpg", ".jpeg", ".png", ".webp"}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.SetTagName("binding")
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates a DTO against its binding tags.
func Struct(v any) error {
	if err := instance().Struct(v); err != nil {
		return describe(err)
	}
	return nil
}

// ID checks a resource identifier that will be placed in a URL path.
func ID(id string) error {
	if err := instance().Var(id, "required,max=128,printascii,excludesall=/?# "); err != nil {
		return xerrors.Invalid("invalid id %q", id)
	}
	return nil
}

func Email(email string) error {
	if err := instance().Var(email, "required,email"); err != nil {
		return xerrors.Invalid("invalid email address")
	}
	return nil
}

// Phone accepts E.164 numbers.
func Phone(phone string) error {
	if err := instance().Var(phone, "required,e164"); err != nil {
		return xerrors.Invalid("invalid phone number %q", phone)
	}
	return nil
}

func Password(password string) error {
	if err := instance().Var(password, "required,min=6"); err != nil {
		return xerrors.Invalid("password should be at least 6 characters")
	}
	return nil
}

// File checks an upload's size and extension. An empty allow list accepts
// any extension.
func File(name string, size int64, allowed []string) error {
	if size <= 0 {
		return xerrors.Invalid("file %q is empty", name)
	}
	if size > MaxUploadSize {
		return fmt.Errorf("%w: %s is %d bytes", xerrors.ErrFileTooLarge, name, size)
	}
	if len(allowed) == 0 {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range allowed {
		if ext == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", xerrors.ErrFileType, name)
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return xerrors.Invalid("%v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return xerrors.Invalid("%s", strings.Join(msgs, "; "))
}
