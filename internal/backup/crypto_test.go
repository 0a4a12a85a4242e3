package backup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var testSalt = []byte("1234567890abcdef")

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if len(salt1) != saltSize {
		t.Errorf("salt length = %d, want %d", len(salt1), saltSize)
	}
	salt2, _ := GenerateSalt()
	if bytes.Equal(salt1, salt2) {
		t.Error("two salts should not be equal")
	}
}

func TestDeriveKey(t *testing.T) {
	key1 := DeriveKey("mypassphrase", testSalt)
	if !bytes.Equal(key1, DeriveKey("mypassphrase", testSalt)) {
		t.Error("same passphrase+salt should produce same key")
	}
	if len(key1) != keySize {
		t.Errorf("key length = %d, want %d", len(key1), keySize)
	}
	if bytes.Equal(key1, DeriveKey("other", testSalt)) {
		t.Error("different passphrases should produce different keys")
	}
}

func TestCheckPassphrase(t *testing.T) {
	check := KeyCheck("correct horse", testSalt)
	if !CheckPassphrase("correct horse", testSalt, check) {
		t.Error("expected passphrase to match")
	}
	if CheckPassphrase("battery staple", testSalt, check) {
		t.Error("expected wrong passphrase to be rejected")
	}
	if CheckPassphrase("correct horse", testSalt, "") {
		t.Error("expected empty check to be rejected")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	original := []byte("SQLite format 3\x00 and some rows")

	sealed, err := Encrypt(original, "pass", testSalt)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(sealed[:saltSize], testSalt) {
		t.Error("output should start with salt")
	}
	if bytes.Contains(sealed, original) {
		t.Error("plaintext visible in output")
	}

	got, err := Decrypt(sealed, "pass")
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Error("decrypted content should match original")
	}
}

func TestDecryptFailures(t *testing.T) {
	sealed, _ := Encrypt([]byte("secret data"), "password", testSalt)

	if _, err := Decrypt(sealed, "wrong"); err == nil {
		t.Error("expected error with wrong passphrase")
	}

	tampered := append([]byte(nil), sealed...)
	tampered[saltSize+nonceSize+1] ^= 0xFF
	if _, err := Decrypt(tampered, "password"); err == nil {
		t.Error("expected error with tampered ciphertext")
	}

	if _, err := Decrypt([]byte("too short"), "password"); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("short input err = %v, want ErrCiphertextTooShort", err)
	}
}

func TestEncryptRejectsBadSalt(t *testing.T) {
	if _, err := Encrypt([]byte("x"), "p", []byte("short")); err == nil {
		t.Error("expected error for short salt")
	}
}

func TestFileRoundTripEmpty(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.db")
	enc := filepath.Join(dir, "empty.db.enc")
	dec := filepath.Join(dir, "empty-dec.db")
	os.WriteFile(src, nil, 0o600)

	if err := EncryptFile(src, enc, "password", testSalt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := DecryptFile(enc, dec, "password"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if data, _ := os.ReadFile(dec); len(data) != 0 {
		t.Errorf("expected empty file, got %d bytes", len(data))
	}
}
