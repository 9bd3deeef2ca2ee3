package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// LogLevels lists the accepted log.level values.
var LogLevels = []string{"trace", "debug", "info", "warn", "error", "disabled"}

var (
	validateOnce sync.Once
	structValid  *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structValid = v
	})
	return structValid
}

// Validate checks field constraints and the relations between fields.
// The first failure is returned as a *ConfigError.
func Validate(cfg *Config) error {
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fieldError(verrs[0])
		}
		return err
	}

	if cfg.Client.Rate.Limit > 0 && cfg.Client.Rate.Burst < 1 {
		return NewValidationError("client.rate.burst", "must be at least 1 when client.rate.limit is set")
	}

	if cfg.Client.CookieJarFile != "" && cfg.Client.CookieJarFile == cfg.Client.CookieFile {
		return NewValidationError("client.cookiejarfile", "must differ from client.cookiefile")
	}

	if strings.ContainsAny(cfg.Client.RequestIDHeader, " :\r\n") {
		return NewValidationError("client.requestidheader", "must be a valid header name")
	}

	if err := cfg.Observability.Validate(); err != nil {
		return NewValidationError("observability", err.Error())
	}

	return nil
}

// fieldError turns a validator failure into a ConfigError keyed by the dotted koanf path.
func fieldError(fe validator.FieldError) *ConfigError {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}

	switch fe.Tag() {
	case "oneof":
		return NewInvalidFieldError(ns, fmt.Sprintf("invalid value %q", fe.Value()), strings.Fields(fe.Param()))
	case "gt", "gte":
		return NewValidationError(ns, fmt.Sprintf("must be greater than%s %s", orEqual(fe.Tag()), fe.Param()))
	case "lte":
		return NewValidationError(ns, "must be at most "+fe.Param())
	default:
		return NewValidationError(ns, "failed "+fe.Tag()+" check")
	}
}

func orEqual(tag string) string {
	if tag == "gte" {
		return " or equal to"
	}
	return ""
}
