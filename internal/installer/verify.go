package installer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// verifyChecksum compares the SHA-256 digest of a file against the expected
// hex digest.
func verifyChecksum(filename, expected string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s",
			filepath.Base(filename), expected, actual)
	}
	return nil
}

// verifySignature checks a detached armored PGP signature over a file using
// an armored public key.
func verifySignature(filename, sigFile, keyFile string) error {
	key, err := os.Open(keyFile)
	if err != nil {
		return err
	}
	defer key.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(key)
	if err != nil {
		return fmt.Errorf("reading signing key: %w", err)
	}

	signed, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer signed.Close()

	sig, err := os.Open(sigFile)
	if err != nil {
		return err
	}
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil); err != nil {
		return fmt.Errorf("signature verification of %s failed: %w", filepath.Base(filename), err)
	}
	return nil
}
