package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

var testParams = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestHashAndVerifyArgon2(t *testing.T) {
	hash, err := HashPasswordWithParams("678900", testParams)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	ok, err := VerifyPassword("678900", hash)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("000000", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch, ok=%v err=%v", ok, err)
	}
	if NeedsRehash(hash) {
		t.Fatal("argon2id hash should not need rehash")
	}
}

func TestVerifyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	ok, err := VerifyPassword("secret", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt password to verify, ok=%v err=%v", ok, err)
	}
	ok, err = VerifyPassword("wrong", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}
	if !NeedsRehash(string(legacy)) {
		t.Fatal("bcrypt hash should need rehash")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("x", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestHashTokenIsStable(t *testing.T) {
	token, err := GenerateToken()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if HashToken(token) != HashToken(token) || HashToken(token) == token {
		t.Fatal("expected deterministic hash distinct from token")
	}
}
