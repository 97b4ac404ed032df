package identifier

import (
	"regexp"
	"strings"
)

// Kind is the classification of a submitted recovery identifier.
type Kind uint8

const (
	// KindInvalid is returned for empty or malformed input.
	KindInvalid Kind = iota
	// KindUsername marks input that satisfies the username grammar.
	KindUsername
	// KindEmail marks input that satisfies the email grammar.
	KindEmail
)

func (k Kind) String() string {
	switch k {
	case KindUsername:
		return "username"
	case KindEmail:
		return "email"
	default:
		return "invalid"
	}
}

// Reason explains why input was classified [KindInvalid].
type Reason uint8

const (
	// ReasonNone is set on valid results.
	ReasonNone Reason = iota
	// ReasonEmpty means the input was empty or whitespace only.
	ReasonEmpty
	// ReasonMalformed means the input failed the username or email grammar.
	ReasonMalformed
)

func (r Reason) String() string {
	switch r {
	case ReasonEmpty:
		return "empty"
	case ReasonMalformed:
		return "malformed"
	default:
		return "none"
	}
}

const (
	// MaxUsernameLength is the longest accepted username, in bytes.
	MaxUsernameLength = 214
	// MaxEmailLength is the longest accepted address, in bytes.
	MaxEmailLength = 254
)

var (
	usernamePattern   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailLocalPattern = regexp.MustCompile("^[A-Za-z0-9.!#$%&'*+/=?^_`{|}~-]+$")
	domainLabel       = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]*[A-Za-z0-9])?$`)
	tldPattern        = regexp.MustCompile(`^[A-Za-z]{2,}$`)
)

// Result is the outcome of [Classify]. Value holds the trimmed input.
type Result struct {
	Kind   Kind
	Value  string
	Reason Reason
}

// Valid reports whether the input was classified as a username or an email.
func (r Result) Valid() bool {
	return r.Kind != KindInvalid
}

// Classify decides whether input is a username, an email address, or neither.
// Input containing "@" is only ever checked against the email grammar.
func Classify(input string) Result {
	value := strings.TrimSpace(input)
	if value == "" {
		return Result{Kind: KindInvalid, Reason: ReasonEmpty}
	}

	if strings.Contains(value, "@") {
		if ValidEmail(value) {
			return Result{Kind: KindEmail, Value: value}
		}
		return Result{Kind: KindInvalid, Value: value, Reason: ReasonMalformed}
	}

	if ValidUsername(value) {
		return Result{Kind: KindUsername, Value: value}
	}
	return Result{Kind: KindInvalid, Value: value, Reason: ReasonMalformed}
}

// ValidUsername reports whether name is an acceptable account name.
func ValidUsername(name string) bool {
	if name == "" || len(name) > MaxUsernameLength {
		return false
	}
	if name[0] == '.' {
		return false
	}
	return usernamePattern.MatchString(name)
}

// ValidEmail reports whether address has exactly one "@", a well-formed local
// part, and a dotted domain ending in an alphabetic TLD.
func ValidEmail(address string) bool {
	if address == "" || len(address) > MaxEmailLength {
		return false
	}
	if strings.Count(address, "@") != 1 {
		return false
	}

	local, domain, _ := strings.Cut(address, "@")
	if !validLocalPart(local) {
		return false
	}
	return validDomain(domain)
}

func validLocalPart(local string) bool {
	if local == "" || len(local) > 64 {
		return false
	}
	if local[0] == '.' || local[len(local)-1] == '.' || strings.Contains(local, "..") {
		return false
	}
	return emailLocalPattern.MatchString(local)
}

func validDomain(domain string) bool {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || !domainLabel.MatchString(label) {
			return false
		}
	}
	return tldPattern.MatchString(labels[len(labels)-1])
}
