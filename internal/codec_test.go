package internal

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestMintCredentialShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		cred, err := MintCredential()
		if err != nil {
			t.Fatalf("MintCredential failed: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(cred)
		if err != nil {
			t.Fatalf("credential is not base64url: %v", err)
		}
		if len(raw) != 32 {
			t.Fatalf("expected 32 bytes of entropy, got %d", len(raw))
		}
		if seen[cred] {
			t.Fatal("duplicate credential minted")
		}
		seen[cred] = true
	}
}

func TestMintCredentialUniquenessAtScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping million-credential sweep in short mode")
	}

	const n = 1_000_000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		cred, err := MintCredential()
		if err != nil {
			t.Fatalf("MintCredential failed at %d: %v", i, err)
		}
		if _, dup := seen[cred]; dup {
			t.Fatalf("duplicate credential after %d mints", i)
		}
		seen[cred] = struct{}{}
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint("credential-a")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, err := Fingerprint("credential-a")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if a != b {
		t.Fatal("equal credentials must produce equal fingerprints")
	}

	c, err := Fingerprint("credential-b")
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if a == c {
		t.Fatal("distinct credentials must produce distinct fingerprints")
	}
}

func TestFingerprintRejectsInvalidInput(t *testing.T) {
	cases := []string{
		"",
		"has space",
		"tab\tchar",
		"newline\n",
		"non-ascii-\xc3\xa9",
		strings.Repeat("a", 10) + "\x00",
	}
	for _, in := range cases {
		if _, err := Fingerprint(in); !errors.Is(err, ErrInvalidCredential) {
			t.Fatalf("expected ErrInvalidCredential for %q, got %v", in, err)
		}
	}
}

func TestFingerprintNeverEchoesInput(t *testing.T) {
	cred := "super-secret-credential-value"
	fp, err := Fingerprint(cred)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	if strings.Contains(fp, cred) {
		t.Fatal("fingerprint must not contain the credential")
	}
}

func FuzzFingerprint(f *testing.F) {
	f.Add("")
	f.Add("plain-credential")
	f.Add("with space")
	f.Add(strings.Repeat("x", 4096))
	f.Add("\x00\x01\x02")

	f.Fuzz(func(t *testing.T, in string) {
		fp, err := Fingerprint(in)
		if err != nil {
			if !errors.Is(err, ErrInvalidCredential) {
				t.Fatalf("unexpected error class: %v", err)
			}
			return
		}
		if fp == "" {
			t.Fatal("accepted input produced empty fingerprint")
		}
		if _, err := base64.RawURLEncoding.DecodeString(fp); err != nil {
			t.Fatalf("fingerprint is not base64url: %v", err)
		}
	})
}
