package auth

import (
	"regexp"
	"sort"
	"strings"
)

const MinPasswordLength = 6

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// FieldErrors maps form field names to messages
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	fields := make([]string, 0, len(f))
	for k := range f {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, k := range fields {
		msgs = append(msgs, f[k])
	}
	return strings.Join(msgs, "; ")
}

// SignInForm holds the sign-in fields
type SignInForm struct {
	Email    string
	Password string
}

// SignUpForm holds the sign-up fields
type SignUpForm struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateEmail returns "" when email looks valid, else the message to show
func ValidateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if !emailPattern.MatchString(email) {
		return "Please enter a valid email address"
	}
	return ""
}

// ValidatePassword returns "" when password is acceptable, else the message to show
func ValidatePassword(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < MinPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

// Validate checks the sign-in form
func (f SignInForm) Validate() error {
	errs := FieldErrors{}
	if msg := ValidateEmail(f.Email); msg != "" {
		errs["email"] = msg
	}
	if msg := ValidatePassword(f.Password); msg != "" {
		errs["password"] = msg
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks the sign-up form
func (f SignUpForm) Validate() error {
	errs := FieldErrors{}
	if msg := ValidateEmail(f.Email); msg != "" {
		errs["email"] = msg
	}
	if msg := ValidatePassword(f.Password); msg != "" {
		errs["password"] = msg
	}
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	if f.Password != f.ConfirmPassword {
		errs["confirmPassword"] = "Passwords do not match"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

var (
	lowerPattern = regexp.MustCompile(`[a-z]`)
	upperPattern = regexp.MustCompile(`[A-Z]`)
	digitPattern = regexp.MustCompile(`[0-9]`)
	otherPattern = regexp.MustCompile(`[^A-Za-z0-9]`)
)

// PasswordStrength scores a password from 0 to 5: one point each for
// length >= 8, a lowercase letter, an uppercase letter, a digit and a symbol.
func PasswordStrength(password string) int {
	score := 0
	if len(password) >= 8 {
		score++
	}
	for _, p := range []*regexp.Regexp{lowerPattern, upperPattern, digitPattern, otherPattern} {
		if p.MatchString(password) {
			score++
		}
	}
	return score
}

// StrengthLabel describes a PasswordStrength score
func StrengthLabel(score int) string {
	switch {
	case score <= 1:
		return "Weak"
	case score == 2:
		return "Fair"
	case score == 3:
		return "Good"
	case score == 4:
		return "Strong"
	default:
		return "Very Strong"
	}
}
