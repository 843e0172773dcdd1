package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/doeshing/dirctx/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(yamlName)
	return v
}

// yamlName reports fields by their config file key.
func yamlName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return describe(fieldErrs)
		}
		return err
	}

	seen := make(map[string]bool, len(cfg.Models))
	for _, model := range cfg.Models {
		if seen[model.Name] {
			return fmt.Errorf("models: duplicate model name %s", model.Name)
		}
		seen[model.Name] = true
	}
	if cfg.Preferences.DefaultModel != "" && !seen[cfg.Preferences.DefaultModel] {
		return fmt.Errorf("default model %s not found in models list", cfg.Preferences.DefaultModel)
	}
	for _, model := range cfg.Models {
		if model.MaxTokens >= model.ContextSize {
			return fmt.Errorf("models.%s: max_tokens must be below context_size", model.Name)
		}
	}
	return nil
}

func describe(errs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s needs at least %s entries", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s, got %v", field, fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
