// Copyright (c) 2025-2026 complex (complex@ft.hn)
// See LICENSE for licensing information

package secret

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/matryer/is"
	"github.com/pkg/errors"
)

const phrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestStore_SaveLoad(t *testing.T) {
	is := is.New(t)

	dir := filepath.Join(t.TempDir(), "wallet_data")
	s := New(dir)
	is.True(!s.Exists())
	is.Equal(s.Path(), filepath.Join(dir, FileName))

	is.NoErr(s.Save(phrase))
	is.True(s.Exists())

	got, err := s.Load()
	is.NoErr(err)
	is.Equal(got, phrase)

	// only the phrase file is left behind
	entries, err := os.ReadDir(dir)
	is.NoErr(err)
	is.Equal(len(entries), 1)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(s.Path())
		is.NoErr(err)
		is.Equal(info.Mode().Perm(), os.FileMode(0o600))
	}
}

func TestStore_SaveNeverOverwrites(t *testing.T) {
	is := is.New(t)

	s := New(t.TempDir())
	is.NoErr(s.Save(phrase))

	err := s.Save("zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong")
	is.True(errors.Is(err, ErrExists))

	got, err := s.Load()
	is.NoErr(err)
	is.Equal(got, phrase)
}

func TestStore_LoadMissing(t *testing.T) {
	is := is.New(t)

	_, err := New(t.TempDir()).Load()
	is.True(errors.Is(err, ErrNotFound))
}

func TestStore_LoadTrims(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	is.NoErr(os.WriteFile(filepath.Join(dir, FileName), []byte("\n  "+phrase+"  \r\n"), 0o600))

	got, err := New(dir).Load()
	is.NoErr(err)
	is.Equal(got, phrase)
}

func TestStore_LoadEmpty(t *testing.T) {
	is := is.New(t)

	dir := t.TempDir()
	is.NoErr(os.WriteFile(filepath.Join(dir, FileName), []byte("\n"), 0o600))

	_, err := New(dir).Load()
	is.True(err != nil)
	is.True(!errors.Is(err, ErrNotFound))
}

func TestStore_UnwritableDir(t *testing.T) {
	is := is.New(t)

	// a regular file where the directory should be
	file := filepath.Join(t.TempDir(), "file")
	is.NoErr(os.WriteFile(file, nil, 0o600))

	err := New(filepath.Join(file, "wallet_data")).Save(phrase)
	is.True(err != nil)
	is.True(!errors.Is(err, ErrExists))
}
