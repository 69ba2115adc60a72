package enums

import "fmt"

// PrincipalKind names which identity table a credential resolves against.
// User and admin ids live in separate tables; the kind, not the id value,
// is what distinguishes them.
type PrincipalKind string

const (
	PrincipalKindUser  PrincipalKind = "user"
	PrincipalKindAdmin PrincipalKind = "admin"
)

func (k PrincipalKind) String() string {
	return string(k)
}

func (k PrincipalKind) IsValid() bool {
	return k == PrincipalKindUser || k == PrincipalKindAdmin
}

func ParsePrincipalKind(value string) (PrincipalKind, error) {
	kind := PrincipalKind(value)
	if !kind.IsValid() {
		return "", fmt.Errorf("invalid principal kind %q", value)
	}
	return kind, nil
}
