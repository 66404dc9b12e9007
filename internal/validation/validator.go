// Package validation はフォーム入力の検証を提供する。
// 検証エラーはフィールド単位のメッセージを持つmodel.APIErrorとして返す。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/newsaic/internal/model"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// Validator はgo-playground/validatorのラッパー。
type Validator struct {
	validate *validator.Validate
}

// New はJSONフィールド名でエラーを報告するValidatorを生成する。
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			// 送信しないフィールドはフォーム名で報告する
			name = fld.Tag.Get("form")
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct は構造体を検証する。検証エラーはvalidationカテゴリのAPIErrorになる。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("入力の検証に失敗しました: %w", err)
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.Namespace())
		if _, exists := fields[key]; exists {
			continue
		}
		fields[key] = message(fe)
	}
	return model.NewValidationError("", fields)
}

// fieldKey は "Registration.preferred_sections[0].section_id" を
// "preferred_sections.0.section_id" に変換する。
func fieldKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	return indexPattern.ReplaceAllString(namespace, ".$1")
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "Passwords do not match."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return "Enter a valid date (YYYY-MM-DD)."
	case "min":
		if fe.Kind() == reflect.Slice {
			return "Please select at least one preferred section."
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	}
	return "This value is invalid."
}
