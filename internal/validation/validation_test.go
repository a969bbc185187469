package validation

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "missing local part",
			email:   "@example.com",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestValidateDimension(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{name: "lower bound", value: 1, wantErr: false},
		{name: "default rows", value: 3, wantErr: false},
		{name: "upper bound", value: 12, wantErr: false},
		{name: "zero", value: 0, wantErr: true},
		{name: "negative", value: -4, wantErr: true},
		{name: "above upper bound", value: 13, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimension("rows", tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDimension(%d) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if err != nil && !IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestValidateGuess(t *testing.T) {
	tests := []struct {
		name    string
		guess   int
		wantErr bool
	}{
		{name: "zero", guess: 0, wantErr: false},
		{name: "positive", guess: 144, wantErr: false},
		{name: "negative", guess: -1, wantErr: true},
		{name: "largest allowed", guess: MaxGuess, wantErr: false},
		{name: "beyond 32-bit columns", guess: 3000000000, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGuess(tt.guess)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGuess(%d) error = %v, wantErr %v", tt.guess, err, tt.wantErr)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "plain number", raw: "12", want: 12},
		{name: "surrounding spaces", raw: " 7 ", want: 7},
		{name: "negative", raw: "-3", want: -3},
		{name: "empty", raw: "", wantErr: true},
		{name: "decimal", raw: "3.5", wantErr: true},
		{name: "letters", raw: "twelve", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseInt("rows", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInt(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseInt(%q) = %d, want %d", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{Field: "cols", Message: "must be between 1 and 12"}
	if err.Error() != "cols: must be between 1 and 12" {
		t.Errorf("Error() = %q", err.Error())
	}
}
