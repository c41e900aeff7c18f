// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

// Package secret persists the wallet's BIP39 phrase as a single plaintext
// file in the data directory.
//
// The file is not encrypted. Anyone who can read the data directory can
// spend the wallet's funds.
package secret

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// FileName is the name of the phrase file inside the data directory.
const FileName = "mnemonic.txt"

var (
	// ErrExists is returned by Save when a phrase is already stored.
	ErrExists = errors.New("a mnemonic is already stored")

	// ErrNotFound is returned by Load when no phrase is stored.
	ErrNotFound = errors.New("no mnemonic stored")
)

// Store reads and writes the phrase file of one data directory.
type Store struct {
	dir string
}

// New returns a Store for dir. The directory is created on first Save.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the phrase file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Exists reports whether a phrase file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Save writes phrase with mode 0600. It never replaces an existing file.
func (s *Store) Save(phrase string) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrapf(err, "create data directory %s", s.dir)
	}

	f, err := os.CreateTemp(s.dir, FileName+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.WriteString(phrase + "\n"); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write temp file")
	}
	if err := f.Chmod(0o600); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "chmod temp file")
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "sync temp file")
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	// Link fails if the target exists, unlike Rename.
	if err := os.Link(tmp, s.Path()); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return errors.Wrapf(err, "store %s", s.Path())
	}
	return nil
}

// Load returns the stored phrase with surrounding whitespace removed.
func (s *Store) Load() (string, error) {
	b, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "read %s", s.Path())
	}
	phrase := strings.TrimSpace(string(b))
	if phrase == "" {
		return "", errors.Errorf("%s is empty", s.Path())
	}
	return phrase, nil
}
