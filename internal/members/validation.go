package members

import (
	"errors"
	"strings"
)

func validateProfile(m Member) error {
	if strings.TrimSpace(m.FirstName) == "" {
		return errors.New("first name is required")
	}
	if strings.TrimSpace(m.LastName) == "" {
		return errors.New("last name is required")
	}
	if strings.TrimSpace(m.PhoneNumber) == "" {
		return errors.New("phone number is required")
	}
	return nil
}
