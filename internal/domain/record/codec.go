package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("invalid entity")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Encode snapshots an entity into its document form.
func Encode(e Entity) (Document, error) {
	payload, err := sonic.Marshal(e)
	if err != nil {
		return Document{}, fmt.Errorf("encode %s %s: %w", e.Kind(), e.Base().ID, err)
	}
	return Document{
		Kind:     e.Kind(),
		Meta:     *e.Base(),
		ParentID: e.ParentRef(),
		Payload:  payload,
	}, nil
}

// Decode restores an entity from a document, taking meta from the columns.
func Decode[T any, PT interface {
	*T
	Entity
}](doc Document) (*T, error) {
	out := new(T)
	if len(doc.Payload) > 0 {
		if err := sonic.Unmarshal(doc.Payload, out); err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", doc.Kind, doc.ID, err)
		}
	}
	*PT(out).Base() = doc.Meta
	return out, nil
}

// ValidateStruct runs the `validate` tags of v and flattens failures into a
// single ErrInvalid error.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
}

// Invalidf builds an ErrInvalid error for checks tags cannot express.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
