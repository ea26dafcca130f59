// internal/driver/reference.go
package driver

import (
	"fmt"
	"regexp"
)

// Reference is a logical descriptor of an interactive element: a role plus an
// accessible-name pattern, or a visible-text fragment. It is a value:
// constructed once at scenario-definition time, immutable for the run, and
// re-resolved fresh on every use because the underlying DOM node may be
// replaced by re-renders.
type Reference struct {
	// Role is the ARIA role of the target ("button", "link", ...). Empty
	// when the reference locates by visible text instead.
	Role string
	// Name matches the accessible name of role-based references.
	Name *regexp.Regexp
	// Text is a visible-text fragment for text-based references.
	Text string
}

// ByRole builds a role+name reference. The pattern must be specific enough to
// match exactly one rendered candidate; the locator's disambiguation rule
// covers the rest.
func ByRole(role, namePattern string) (Reference, error) {
	if role == "" {
		return Reference{}, fmt.Errorf("role must not be empty")
	}
	re, err := regexp.Compile(namePattern)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid name pattern %q: %w", namePattern, err)
	}
	return Reference{Role: role, Name: re}, nil
}

// ByText builds a visible-text reference.
func ByText(text string) (Reference, error) {
	if text == "" {
		return Reference{}, fmt.Errorf("text must not be empty")
	}
	return Reference{Text: text}, nil
}

func (r Reference) String() string {
	if r.Role != "" {
		return fmt.Sprintf("role=%s name=%s", r.Role, r.Name)
	}
	return fmt.Sprintf("text=%q", r.Text)
}
