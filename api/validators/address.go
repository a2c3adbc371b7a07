package validators

import (
	pkgauth "github.com/tailrace/lobby-backend/pkg/auth"
	pkgerrors "github.com/tailrace/lobby-backend/pkg/errors"
)

// Address validates and normalizes a wallet address from request input.
func Address(raw string) (string, error) {
	address, err := pkgauth.NormalizeAddress(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet address").WithDetails(map[string]any{"field": "address"})
	}
	return address, nil
}
