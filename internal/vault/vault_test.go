package vault

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
)

func encryptString(t *testing.T, plaintext string, recipients ...age.Recipient) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := Encrypt(&buf, recipients...)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestPassphraseRoundTrip(t *testing.T) {
	r, err := PassphraseRecipient("correct horse")
	if err != nil {
		t.Fatalf("PassphraseRecipient() error = %v", err)
	}
	ciphertext := encryptString(t, `{"version":"2.0"}`, r)
	if !strings.HasPrefix(string(ciphertext), "-----BEGIN AGE ENCRYPTED FILE-----") {
		t.Errorf("output is not armored: %q", ciphertext[:20])
	}

	id, _ := PassphraseIdentity("correct horse")
	plain, err := Decrypt(bytes.NewReader(ciphertext), id)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	got, _ := io.ReadAll(plain)
	if string(got) != `{"version":"2.0"}` {
		t.Errorf("Decrypt() = %q", got)
	}

	wrong, _ := PassphraseIdentity("wrong horse")
	if _, err := Decrypt(bytes.NewReader(ciphertext), wrong); !errors.Is(err, ErrWrongKey) {
		t.Errorf("Decrypt() with wrong passphrase error = %v, want ErrWrongKey", err)
	}
}

func TestRecipientRoundTrip(t *testing.T) {
	identity, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity() error = %v", err)
	}
	recipients, err := ParseRecipients(identity.Recipient().String())
	if err != nil {
		t.Fatalf("ParseRecipients() error = %v", err)
	}
	ciphertext := encryptString(t, "backup", recipients...)

	keyFile := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(keyFile, []byte(identity.String()+"\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	ids, err := LoadIdentities(keyFile)
	if err != nil {
		t.Fatalf("LoadIdentities() error = %v", err)
	}

	plain, err := Decrypt(bytes.NewReader(ciphertext), ids...)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	got, _ := io.ReadAll(plain)
	if string(got) != "backup" {
		t.Errorf("Decrypt() = %q", got)
	}
}

func TestDecryptRejectsPlaintext(t *testing.T) {
	id, _ := PassphraseIdentity("x")
	if _, err := Decrypt(strings.NewReader(`{"version":"2.0"}`), id); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("Decrypt() error = %v, want ErrNotEncrypted", err)
	}
}

func TestParseRecipientsErrors(t *testing.T) {
	tests := []struct {
		name string
		keys []string
	}{
		{"none", nil},
		{"blank", []string{"  "}},
		{"garbage", []string{"not-a-key"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecipients(tt.keys...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backup.json.age")

	r, _ := PassphraseRecipient("pw")
	err := WriteFileAtomic(path, 0o600, func(out io.Writer) error {
		w, err := Encrypt(out, r)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, "data"); err != nil {
			return err
		}
		return w.Close()
	})
	if err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	enc, err := IsEncrypted(path)
	if err != nil || !enc {
		t.Errorf("IsEncrypted() = %v, %v", enc, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	// A failing writer leaves the previous file and no temp files behind.
	failErr := errors.New("boom")
	if err := WriteFileAtomic(path, 0o600, func(io.Writer) error { return failErr }); !errors.Is(err, failErr) {
		t.Errorf("WriteFileAtomic() error = %v, want boom", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}
