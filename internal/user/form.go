package user

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/ovaphlow/pitchfork/recipes/internal/apperr"
)

// PasswordComplexityError is attached to password fields that do not
// satisfy the complexity policy.
const PasswordComplexityError = "Password must have at least one uppercase letter, " +
	"one lowercase letter and one number. The length should be " +
	"at least 8 characters."

const (
	msgUsernameRequired  = "This field must not be empty"
	msgUsernameCharset   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	msgUsernameTaken     = "A user with that username already exists."
	msgFirstNameRequired = "Write your first name"
	msgLastNameRequired  = "Write your last name"
	msgEmailRequired     = "E-mail is required"
	msgEmailInvalid      = "Enter a valid email address."
	msgEmailTaken        = "User e-mail is already in use"
	msgPasswordRequired  = "Password must not be empty"
	msgPassword2Required = "Please, repeat your password"
	msgPasswordMismatch  = "Password and password2 must be equal"

	usernameMinLength = 4
	usernameMaxLength = 150
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// RegisterForm carries the raw values of one registration attempt.
type RegisterForm struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f RegisterForm) Trimmed() RegisterForm {
	return RegisterForm{
		Username:  strings.TrimSpace(f.Username),
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Password:  strings.TrimSpace(f.Password),
		Password2: strings.TrimSpace(f.Password2),
	}
}

// Validate runs the field and cross-field checks that need no storage.
func (f RegisterForm) Validate() apperr.FieldErrors {
	f = f.Trimmed()
	fe := apperr.FieldErrors{}
	fe.Add("username", validateUsername(f.Username)...)
	fe.Add("first_name", required(f.FirstName, msgFirstNameRequired)...)
	fe.Add("last_name", required(f.LastName, msgLastNameRequired)...)
	fe.Add("email", validateEmail(f.Email)...)
	fe.Add("password", validatePassword(f.Password, msgPasswordRequired)...)
	fe.Add("password2", validatePassword(f.Password2, msgPassword2Required)...)
	if f.Password != f.Password2 {
		fe.Add("password", msgPasswordMismatch)
		fe.Add("password2", msgPasswordMismatch)
	}
	return fe
}

func required(v, msg string) []string {
	if v == "" {
		return []string{msg}
	}
	return nil
}

func validateUsername(v string) []string {
	if v == "" {
		return []string{msgUsernameRequired}
	}
	var errs []string
	if n := utf8.RuneCountInString(v); n < usernameMinLength {
		errs = append(errs, fmt.Sprintf("Ensure this value has at least %d characters (it has %d).", usernameMinLength, n))
	} else if n > usernameMaxLength {
		errs = append(errs, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", usernameMaxLength, n))
	}
	if !usernamePattern.MatchString(v) {
		errs = append(errs, msgUsernameCharset)
	}
	return errs
}

func validateEmail(v string) []string {
	if v == "" {
		return []string{msgEmailRequired}
	}
	if err := getValidator().Var(v, "email"); err != nil {
		return []string{msgEmailInvalid}
	}
	return nil
}

func validatePassword(v, requiredMsg string) []string {
	if v == "" {
		return []string{requiredMsg}
	}
	if !StrongPassword(v) {
		return []string{PasswordComplexityError}
	}
	return nil
}

// StrongPassword reports whether pw has an uppercase letter, a lowercase
// letter, a digit and at least 8 characters.
func StrongPassword(pw string) bool {
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		}
	}
	return upper && lower && digit && utf8.RuneCountInString(pw) >= 8
}

// LoginForm carries the submitted login credentials.
type LoginForm struct {
	Username string
	Password string
	Next     string
}

// Valid reports whether both credentials were provided within length limits.
func (f LoginForm) Valid() bool {
	u := strings.TrimSpace(f.Username)
	return u != "" && f.Password != "" &&
		utf8.RuneCountInString(u) <= usernameMaxLength && utf8.RuneCountInString(f.Password) <= 128
}
