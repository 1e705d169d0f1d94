package validation

import (
	"strings"
	"testing"
)

type validationCase struct {
	name    string
	input   string
	wantErr bool
	errMsg  string
}

func runValidationCases(t *testing.T, fn func(string) error, tests []validationCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fn(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error message = %v, want to contain %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestAuthRequestValidator_ValidateUsername(t *testing.T) {
	validator := NewAuthRequestValidator()

	runValidationCases(t, validator.ValidateUsername, []validationCase{
		{name: "valid username", input: "medstudent", wantErr: false},
		{name: "with numbers underscore and hyphen", input: "med_student-42", wantErr: false},
		{name: "minimum length", input: "abc", wantErr: false},
		{name: "empty", input: "", wantErr: true, errMsg: "username cannot be empty"},
		{name: "too short", input: "ab", wantErr: true, errMsg: "at least 3 characters"},
		{name: "too long", input: strings.Repeat("a", 51), wantErr: true, errMsg: "at most 50 characters"},
		{name: "spaces", input: "med student", wantErr: true, errMsg: "can only contain"},
		{name: "at sign", input: "med@student", wantErr: true, errMsg: "can only contain"},
	})
}

func TestAuthRequestValidator_ValidatePassword(t *testing.T) {
	validator := NewAuthRequestValidator()

	runValidationCases(t, validator.ValidatePassword, []validationCase{
		{name: "valid password", input: "correct-horse", wantErr: false},
		{name: "minimum length", input: "12345678", wantErr: false},
		{name: "maximum length", input: strings.Repeat("p", 50), wantErr: false},
		{name: "empty", input: "", wantErr: true, errMsg: "password cannot be empty"},
		{name: "too short", input: "1234567", wantErr: true, errMsg: "at least 8 characters long, got 7"},
		{name: "too long", input: strings.Repeat("p", 51), wantErr: true, errMsg: "at most 50 characters long, got 51"},
	})
}

func TestAuthRequestValidator_ValidateEmail(t *testing.T) {
	validator := NewAuthRequestValidator()

	runValidationCases(t, validator.ValidateEmail, []validationCase{
		{name: "valid email", input: "student@university.edu", wantErr: false},
		{name: "plus and subdomain", input: "first.last+med@mail.uni.edu", wantErr: false},
		{name: "empty", input: "", wantErr: true, errMsg: "email cannot be empty"},
		{name: "missing at", input: "student.university.edu", wantErr: true, errMsg: "invalid email format"},
		{name: "missing tld", input: "student@university", wantErr: true, errMsg: "invalid email format"},
		{name: "too long", input: strings.Repeat("a", 250) + "@x.com", wantErr: true, errMsg: "at most 255 characters"},
	})
}

func TestAuthRequestValidator_ValidateLoginRequest(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{name: "valid", username: "medstudent", password: "whatever", wantErr: false},
		{name: "short password still accepted", username: "medstudent", password: "x", wantErr: false},
		{name: "missing username", username: "", password: "whatever", wantErr: true},
		{name: "missing password", username: "medstudent", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateLoginRequest(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLoginRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthRequestValidator_ValidateRegisterRequest(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		errMsg   string
	}{
		{name: "valid", username: "medstudent", email: "student@university.edu", password: "correct-horse"},
		{name: "bad username reported first", username: "a", email: "", password: "", errMsg: "username"},
		{name: "missing email", username: "medstudent", email: "", password: "correct-horse", errMsg: "email cannot be empty"},
		{name: "weak password", username: "medstudent", email: "student@university.edu", password: "short", errMsg: "password must be at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateRegisterRequest(tt.username, tt.email, tt.password)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("ValidateRegisterRequest() unexpected error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateRegisterRequest() error = %v, want to contain %q", err, tt.errMsg)
			}
		})
	}
}
