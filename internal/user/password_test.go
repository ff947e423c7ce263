package user

import "testing"

func TestPasswordHashAndVerify(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	hash, err := HashPassword("p@ssw0rd", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !VerifyPassword("p@ssw0rd", salt, hash) {
		t.Fatalf("expected password to verify")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected empty password to be rejected")
	}
}
