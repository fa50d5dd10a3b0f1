package company

import "errors"

var (
	ErrLicenseNotFound = errors.New("license not found")
	ErrCompanyNotFound = errors.New("company not found")
)
