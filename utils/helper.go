package utils

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

var CountryCode = "CN"

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil // Phone number is valid for the specified country code
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

// ExecTemplate renders a SQL template; reports use it to switch optional
// filter clauses on and off.
func ExecTemplate(tString string, data map[string]interface{}) (string, error) {
	t, err := template.New("sql").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing sql template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute sql template: " + err.Error())
	}
	return b.String(), nil
}
