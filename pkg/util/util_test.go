package util

import (
	"strings"
	"testing"
	"time"
)

func TestHashPasswordSHA256(t *testing.T) {
	// echo -n 123456 | sha256sum
	const want = "8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92"

	got, err := HashPassword("123456", SchemeSHA256)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if got != want {
		t.Errorf("HashPassword() = %s, want %s", got, want)
	}
}

func TestCheckPassword(t *testing.T) {
	bcryptHash, err := HashPassword("secret-pw", SchemeBcrypt)
	if err != nil {
		t.Fatalf("HashPassword(bcrypt) error = %v", err)
	}
	shaHash, _ := HashPassword("secret-pw", SchemeSHA256)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{name: "sha256 match", password: "secret-pw", hash: shaHash, want: true},
		{name: "sha256 uppercase digest", password: "secret-pw", hash: strings.ToUpper(shaHash), want: true},
		{name: "sha256 mismatch", password: "wrong", hash: shaHash, want: false},
		{name: "bcrypt match", password: "secret-pw", hash: bcryptHash, want: true},
		{name: "bcrypt mismatch", password: "wrong", hash: bcryptHash, want: false},
		{name: "empty hash", password: "secret-pw", hash: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHashPasswordUnknownScheme(t *testing.T) {
	if _, err := HashPassword("x", "md5"); err != ErrUnknownScheme {
		t.Errorf("HashPassword() error = %v, want ErrUnknownScheme", err)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "boundary format", input: "2025-01-10 10:00:00", wantErr: false},
		{name: "surrounding spaces", input: " 2025-01-10 10:00:00 ", wantErr: false},
		{name: "iso with T", input: "2025-01-10T10:00:00", wantErr: true},
		{name: "date only", input: "2025-01-10", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && FormatTime(got) != "2025-01-10 10:00:00" {
				t.Errorf("FormatTime(ParseTime()) = %s", FormatTime(got))
			}
		})
	}
}

func TestGenerateRequestID(t *testing.T) {
	a, b := GenerateRequestID(), GenerateRequestID()
	if len(a) != 32 || strings.Contains(a, "-") {
		t.Errorf("GenerateRequestID() = %q, want 32 hex chars", a)
	}
	if a == b {
		t.Error("GenerateRequestID() returned duplicate ids")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token-a")
	if len(a) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(a))
	}
	if a == HashToken("token-b") || a != HashToken("token-a") {
		t.Error("HashToken() is not a stable digest")
	}
}
