package crypt

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
)

const (
	// MinPassphraseLength is enforced when a passphrase is created.
	MinPassphraseLength = 8

	passphraseFilename = "backup-passphrase"
)

// Passphrase holds the backup passphrase in locked memory for the
// duration of a run. It is read from disk once and never logged, written
// into a manifest, or passed on a command line.
type Passphrase struct {
	enclave *memguard.Enclave
}

// NewPassphrase seals raw into locked memory. The caller's slice is wiped.
func NewPassphrase(raw []byte) *Passphrase {
	return &Passphrase{enclave: memguard.NewEnclave(raw)}
}

func (p *Passphrase) open() (*memguard.LockedBuffer, error) {
	if p == nil || p.enclave == nil {
		return nil, fmt.Errorf("no passphrase loaded")
	}
	return p.enclave.Open()
}

// Store manages the on-disk passphrase file with owner-only permissions.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, typically ~/.config/stackbak.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultConfigDir returns the per-user configuration directory.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "stackbak"), nil
}

// Path returns the passphrase file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, passphraseFilename)
}

// Exists reports whether a passphrase has been set up.
func (s *Store) Exists() bool {
	info, err := os.Stat(s.Path())
	return err == nil && info.Mode().IsRegular()
}

// Load reads the stored passphrase into locked memory.
func (s *Store) Load() (*Passphrase, error) {
	raw, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("reading passphrase file: %w", err)
	}
	trimmed := bytes.TrimRight(raw, "\r\n")
	return NewPassphrase(trimmed), nil
}

// Save persists a new passphrase with mode 0600. The raw slice is wiped
// after writing.
func (s *Store) Save(raw []byte) error {
	defer memguard.WipeBytes(raw)

	if len(raw) < MinPassphraseLength {
		return fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(s.Path(), raw, 0600); err != nil {
		return fmt.Errorf("writing passphrase file: %w", err)
	}
	// WriteFile only applies the mode on creation.
	return os.Chmod(s.Path(), 0600)
}

// GetOrCreate loads the stored passphrase, or runs prompt to create one
// interactively, persists it, and returns it.
func (s *Store) GetOrCreate(prompt func() ([]byte, error)) (*Passphrase, error) {
	if s.Exists() {
		return s.Load()
	}
	raw, err := prompt()
	if err != nil {
		return nil, err
	}
	// Save wipes raw, so seal a copy first.
	sealed := NewPassphrase(append([]byte(nil), raw...))
	if err := s.Save(raw); err != nil {
		return nil, err
	}
	return sealed, nil
}
