// Package vault wraps backup streams in age encryption. Output is always
// ASCII armored; input may be armored or binary. Keys are either a
// passphrase (age scrypt) or X25519 recipients and identities.
package vault

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// ErrWrongKey is returned when no supplied passphrase or identity opens the file.
var ErrWrongKey = errors.New("wrong passphrase or identity")

// ErrNotEncrypted is returned when the input is not an age file.
var ErrNotEncrypted = errors.New("input is not age encrypted")

// PassphraseRecipient returns a scrypt recipient for passphrase.
func PassphraseRecipient(passphrase string) (age.Recipient, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating age recipient: %w", err)
	}
	return r, nil
}

// PassphraseIdentity returns the scrypt identity matching PassphraseRecipient.
func PassphraseIdentity(passphrase string) (age.Identity, error) {
	if passphrase == "" {
		return nil, errors.New("passphrase must not be empty")
	}
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating age identity: %w", err)
	}
	return id, nil
}

// ParseRecipients parses one or more "age1..." public keys.
func ParseRecipients(keys ...string) ([]age.Recipient, error) {
	var out []age.Recipient
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		r, err := age.ParseX25519Recipient(k)
		if err != nil {
			return nil, fmt.Errorf("invalid recipient %q: %w", k, err)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.New("no recipients given")
	}
	return out, nil
}

// LoadIdentities reads an age identity file such as one written by age-keygen.
func LoadIdentities(path string) ([]age.Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parsing identity file %s: %w", path, err)
	}
	return ids, nil
}

// GenerateIdentity creates a new X25519 key pair.
func GenerateIdentity() (*age.X25519Identity, error) {
	return age.GenerateX25519Identity()
}

type encryptWriter struct {
	age   io.WriteCloser
	armor io.WriteCloser
}

func (w *encryptWriter) Write(p []byte) (int, error) {
	return w.age.Write(p)
}

// Close flushes the final age chunk and the armor footer. It does not close
// the underlying writer.
func (w *encryptWriter) Close() error {
	if err := w.age.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	if err := w.armor.Close(); err != nil {
		return fmt.Errorf("finalizing armor: %w", err)
	}
	return nil
}

// Encrypt returns a writer that armors and encrypts everything written to it
// into dst. The caller must Close it.
func Encrypt(dst io.Writer, recipients ...age.Recipient) (io.WriteCloser, error) {
	if len(recipients) == 0 {
		return nil, errors.New("no recipients given")
	}
	aw := armor.NewWriter(dst)
	w, err := age.Encrypt(aw, recipients...)
	if err != nil {
		return nil, fmt.Errorf("initializing age encryption: %w", err)
	}
	return &encryptWriter{age: w, armor: aw}, nil
}

// Decrypt returns a reader of the plaintext of src, which may be armored or binary.
func Decrypt(src io.Reader, identities ...age.Identity) (io.Reader, error) {
	if len(identities) == 0 {
		return nil, errors.New("no identities given")
	}

	br := bufio.NewReader(src)
	head, err := br.Peek(len(armor.Header))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	var in io.Reader = br
	switch {
	case string(head) == armor.Header:
		in = armor.NewReader(br)
	case bytes.HasPrefix(head, []byte("age-encryption.org/")):
	default:
		return nil, ErrNotEncrypted
	}

	r, err := age.Decrypt(in, identities...)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) || strings.Contains(err.Error(), "incorrect") {
			return nil, fmt.Errorf("%w: %v", ErrWrongKey, err)
		}
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	return r, nil
}

// IsEncrypted reports whether the file at path starts with an age header.
func IsEncrypted(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, len(armor.Header))
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	buf = buf[:n]
	return string(buf) == armor.Header || bytes.HasPrefix(buf, []byte("age-encryption.org/")), nil
}

// WriteFileAtomic calls write with a temp file in path's directory and
// renames it into place once write and fsync succeed.
func WriteFileAtomic(path string, perm os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".backup-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if err := os.Chmod(tmpName, perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting temp file permissions: %w", err)
	}

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsyncing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("committing %s: %w", path, err)
	}

	success = true
	return nil
}
