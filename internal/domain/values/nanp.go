package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NPA is a validated North American area code
type NPA struct {
	code string
}

// NXX is a validated central-office code
type NXX struct {
	code string
}

// CodeValidationError explains why a 3-digit NANP code was rejected
type CodeValidationError struct {
	Kind   string
	Value  string
	Reason string
}

func (e CodeValidationError) Error() string {
	return fmt.Sprintf("invalid %s '%s': %s", e.Kind, e.Value, e.Reason)
}

// NewNPA creates an NPA from its 3-digit string form. Surrounding whitespace is ignored.
func NewNPA(code string) (NPA, error) {
	cleaned, err := validateCode("NPA", code)
	if err != nil {
		return NPA{}, err
	}
	return NPA{code: cleaned}, nil
}

// NewNXX creates an NXX from its 3-digit string form. Surrounding whitespace is ignored.
func NewNXX(code string) (NXX, error) {
	cleaned, err := validateCode("NXX", code)
	if err != nil {
		return NXX{}, err
	}
	return NXX{code: cleaned}, nil
}

// MustNewNPA creates an NPA and panics on error (for constants/tests)
func MustNewNPA(code string) NPA {
	npa, err := NewNPA(code)
	if err != nil {
		panic(err)
	}
	return npa
}

// MustNewNXX creates an NXX and panics on error (for constants/tests)
func MustNewNXX(code string) NXX {
	nxx, err := NewNXX(code)
	if err != nil {
		panic(err)
	}
	return nxx
}

// IsValidCode reports whether s is exactly three ASCII digits with a leading 2-9.
func IsValidCode(s string) bool {
	_, err := validateCode("code", s)
	return err == nil && s == strings.TrimSpace(s)
}

func (n NPA) String() string { return n.code }

func (n NPA) IsEmpty() bool { return n.code == "" }

func (n NPA) Equal(other NPA) bool { return n.code == other.code }

func (n NXX) String() string { return n.code }

func (n NXX) IsEmpty() bool { return n.code == "" }

func (n NXX) Equal(other NXX) bool { return n.code == other.code }

// MarshalJSON implements JSON marshaling
func (n NPA) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.code)
}

// UnmarshalJSON implements JSON unmarshaling
func (n *NPA) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	npa, err := NewNPA(code)
	if err != nil {
		return err
	}
	*n = npa
	return nil
}

// MarshalJSON implements JSON marshaling
func (n NXX) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.code)
}

// UnmarshalJSON implements JSON unmarshaling
func (n *NXX) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	nxx, err := NewNXX(code)
	if err != nil {
		return err
	}
	*n = nxx
	return nil
}

// E164Prefix returns the +1NPANXX prefix of numbers in the given exchange.
func E164Prefix(npa NPA, nxx NXX) string {
	return "+1" + npa.code + nxx.code
}

func validateCode(kind, code string) (string, error) {
	cleaned := strings.TrimSpace(code)
	if cleaned == "" {
		return "", CodeValidationError{Kind: kind, Value: code, Reason: "cannot be empty"}
	}
	if len(cleaned) != 3 {
		return "", CodeValidationError{Kind: kind, Value: code, Reason: "must be exactly 3 digits"}
	}
	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] < '0' || cleaned[i] > '9' {
			return "", CodeValidationError{Kind: kind, Value: code, Reason: "must contain only digits"}
		}
	}
	// NANP: neither NPA nor NXX may start with 0 or 1
	if cleaned[0] == '0' || cleaned[0] == '1' {
		return "", CodeValidationError{Kind: kind, Value: code, Reason: "leading digit must be 2-9"}
	}
	return cleaned, nil
}
