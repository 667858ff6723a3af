// Package password scores password composition for signup, profile
// update and password reset forms.
package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Composition thresholds.
const (
	MinLength    = 8
	StrongLength = 12
)

// specialChars defines which characters satisfy the special-character rule.
const specialChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Strength is the coarse classification shown next to a password field.
type Strength string

const (
	Weak   Strength = "weak"
	Medium Strength = "medium"
	Strong Strength = "strong"
)

// Rule is one composition requirement. Key is the translation key of the
// message describing it.
type Rule struct {
	Key string
	Met bool
}

// Result is the outcome of Evaluate.
type Result struct {
	Rules    []Rule
	Valid    bool
	Strength Strength
}

// Failed returns the translation keys of the unmet rules, in rule order.
func (r Result) Failed() []string {
	var keys []string
	for _, rule := range r.Rules {
		if !rule.Met {
			keys = append(keys, rule.Key)
		}
	}
	return keys
}

// Evaluate checks pw against the five composition rules: length, upper
// case, lower case, digit and special character. A password is valid only
// when all five hold; it is strong when valid and at least StrongLength
// runes long, medium when valid but shorter, weak otherwise.
func Evaluate(pw string) Result {
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	n := utf8.RuneCountInString(pw)

	res := Result{Rules: []Rule{
		{Key: "password.rule.length", Met: n >= MinLength},
		{Key: "password.rule.upper", Met: upper},
		{Key: "password.rule.lower", Met: lower},
		{Key: "password.rule.digit", Met: digit},
		{Key: "password.rule.special", Met: special},
	}}

	res.Valid = true
	for _, rule := range res.Rules {
		res.Valid = res.Valid && rule.Met
	}

	switch {
	case !res.Valid:
		res.Strength = Weak
	case n >= StrongLength:
		res.Strength = Strong
	default:
		res.Strength = Medium
	}
	return res
}

// Validate returns the translation keys of the rules pw fails; an empty
// slice means the password is acceptable.
func Validate(pw string) []string {
	return Evaluate(pw).Failed()
}
