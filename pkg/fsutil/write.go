// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package fsutil writes files so that readers never see a partial file.
package fsutil

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// WriteAtomic writes a file by having fn fill a temporary file in the same directory, syncing
// it, and renaming it over path.  If fn or any step fails, path is left untouched and the
// temporary file is removed.
func WriteAtomic(path string, perm fs.FileMode, fn func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fn(tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteFileAtomic is WriteAtomic for content that is already in memory.  It does not touch the
// file if it already has exactly that content, and reports whether it wrote.
func WriteFileAtomic(path string, content []byte, perm fs.FileMode) (changed bool, err error) {
	if same, err := hasContent(path, content); err != nil {
		return false, err
	} else if same {
		return false, nil
	}
	err = WriteAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	})
	return err == nil, err
}

func hasContent(path string, content []byte) (equal bool, err error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		if _err := file.Close(); _err != nil && err == nil {
			err = _err
		}
	}()
	return readersEqual(file, bytes.NewReader(content))
}

func readersEqual(a, b io.Reader) (equal bool, err error) {
	const chunkSize = 1024

	var aBuf, bBuf [chunkSize]byte
	for {
		aLen, err := io.ReadFull(a, aBuf[:])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return false, err
		}
		bLen, err := io.ReadFull(b, bBuf[:])
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return false, err
		}
		if !bytes.Equal(aBuf[:aLen], bBuf[:bLen]) {
			return false, nil
		}
		if aLen < chunkSize {
			// EOF
			break
		}
	}

	return true, nil
}
