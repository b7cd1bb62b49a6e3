// Package validate checks user input before it is sent to the API.
// Validation failures are returned as Errors and never reach the network layer.
package validate

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/woozymasta/gsdash/internal/models"
)

// MinPasswordLength is the shortest accepted admin password.
const MinPasswordLength = 6

var (
	ipv4Re     = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(?:25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	numericRe  = regexp.MustCompile(`^[0-9.]+$`)

	validate = newValidator()
)

// Errors maps a field name (JSON name) to a human readable message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation reports whether err carries validation Errors.
func IsValidation(err error) bool {
	var v Errors
	return errors.As(err, &v)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("gameaddr", func(fl validator.FieldLevel) bool {
		return Address(fl.Field().String())
	})
	_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		return HTTPURL(fl.Field().String())
	})

	return v
}

// Address reports whether s is a dotted IPv4 address or a hostname.
// All-numeric dotted input must be a valid IPv4 address, so "300.1.1.1" is rejected.
func Address(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 253 {
		return false
	}
	if numericRe.MatchString(s) {
		return ipv4Re.MatchString(s)
	}

	return hostnameRe.MatchString(s)
}

// Port reports whether p is a usable TCP/UDP port.
func Port(p int) bool {
	return p >= 1 && p <= 65535
}

// HTTPURL reports whether s is an absolute http or https URL.
func HTTPURL(s string) bool {
	u, err := url.ParseRequestURI(strings.TrimSpace(s))
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// DefaultPort returns the conventional port for a server type.
func DefaultPort(serverType string) int {
	if serverType == models.TypeCS2 {
		return 27015
	}

	return 25565
}

// Server validates a create/update payload. Leading and trailing spaces of
// name and address are trimmed in place.
func Server(req *models.ServerRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Address = strings.TrimSpace(req.Address)
	req.DownloadURL = strings.TrimSpace(req.DownloadURL)

	return check(req)
}

// Login validates credentials.
func Login(req models.LoginRequest) error {
	errs := Errors{}
	if strings.TrimSpace(req.Username) == "" {
		errs["username"] = "username is required"
	}
	if req.Password == "" {
		errs["password"] = "password is required"
	}
	if len(errs) > 0 {
		return errs
	}

	return nil
}

// PasswordChange validates a password change entered with confirmation.
func PasswordChange(current, next, confirm string) error {
	errs := Errors{}
	if current == "" {
		errs["current_password"] = "current password is required"
	}
	switch {
	case len(next) < MinPasswordLength:
		errs["new_password"] = fmt.Sprintf("new password must be at least %d characters", MinPasswordLength)
	case next == current:
		errs["new_password"] = "new password must differ from the current one"
	}
	if next != confirm {
		errs["confirm_password"] = "passwords do not match"
	}
	if len(errs) > 0 {
		return errs
	}

	return nil
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	errs := Errors{}
	for _, fe := range fieldErrs {
		errs[fe.Field()] = message(fe)
	}

	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gameaddr":
		return "must be a valid IPv4 address or hostname"
	case "httpurl":
		return "must be an http or https URL"
	case "min", "max":
		if fe.Field() == "port" {
			return "must be between 1 and 65535"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}

	return "is invalid"
}
