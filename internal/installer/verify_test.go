package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

func TestVerifyChecksum(t *testing.T) {
	payload := []byte("archive payload bytes")
	file := filepath.Join(t.TempDir(), "pkg.tar.gz")
	if err := os.WriteFile(file, payload, 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	if err := verifyChecksum(file, digest); err != nil {
		t.Errorf("matching digest rejected: %v", err)
	}
	if err := verifyChecksum(file, strings.ToUpper(digest)); err != nil {
		t.Errorf("digest comparison should ignore case: %v", err)
	}

	err := verifyChecksum(file, strings.Repeat("0", 64))
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "pkg.tar.gz") {
		t.Errorf("error should name the file, got: %v", err)
	}
}

func TestVerifyChecksumMissingFile(t *testing.T) {
	if err := verifyChecksum(filepath.Join(t.TempDir(), "absent"), strings.Repeat("0", 64)); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestVerifySignatureBadKey(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pkg.tar.gz")
	sig := filepath.Join(dir, "pkg.tar.gz.asc")
	key := filepath.Join(dir, "signing.key")
	for _, p := range []string{file, sig, key} {
		if err := os.WriteFile(p, []byte("not pgp material"), 0644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	err := verifySignature(file, sig, key)
	if err == nil {
		t.Fatal("expected error for unparsable key")
	}
	if !strings.Contains(err.Error(), "reading signing key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifySignatureInvalidSignature(t *testing.T) {
	dir := t.TempDir()

	entity, err := openpgp.NewEntity("Release Signing", "", "releases@example.com", nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyFile, err := os.Create(filepath.Join(dir, "signing.key"))
	if err != nil {
		t.Fatalf("create key file: %v", err)
	}
	enc, err := armor.Encode(keyFile, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor key: %v", err)
	}
	if err := entity.Serialize(enc); err != nil {
		t.Fatalf("serialize key: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close armor: %v", err)
	}
	if err := keyFile.Close(); err != nil {
		t.Fatalf("close key file: %v", err)
	}

	file := filepath.Join(dir, "pkg.tar.gz")
	if err := os.WriteFile(file, []byte("archive payload"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	sig := filepath.Join(dir, "pkg.tar.gz.asc")
	if err := os.WriteFile(sig, []byte("garbage, not a signature"), 0644); err != nil {
		t.Fatalf("write sig: %v", err)
	}

	err = verifySignature(file, sig, keyFile.Name())
	if err == nil {
		t.Fatal("expected verification failure")
	}
	if !strings.Contains(err.Error(), "signature verification") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVerifySignatureMissingFiles(t *testing.T) {
	dir := t.TempDir()
	if err := verifySignature(filepath.Join(dir, "a"), filepath.Join(dir, "b"), filepath.Join(dir, "c")); err == nil {
		t.Error("expected error for missing key file")
	}
}
