// Copyright (C) 2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package pep427 reads the metadata of wheel files, per PEP 427 -- The Wheel Binary Package
// Format 1.0.
//
// https://www.python.org/dev/peps/pep-0427/
package pep427

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/datawire/dlib/dlog"
)

type Wheel struct {
	zip *zip.Reader
}

// Read opens a wheel that has been read in to memory.
func Read(content []byte) (*Wheel, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("pep427.Read: %w", err)
	}
	return &Wheel{zip: zr}, nil
}

type version []int

var specVersion = version{1, 0}

func parseVersion(str string) (version, error) {
	parts := strings.Split(str, ".")
	ret := make(version, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("could not parse wheel version number: %q: %w", str, err)
		}
		ret = append(ret, n)
	}
	return ret, nil
}

func (v version) String() string {
	parts := make([]string, 0, len(v))
	for _, n := range v {
		parts = append(parts, strconv.Itoa(n))
	}
	return strings.Join(parts, ".")
}

func vercmp(a, b version) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var aPart, bPart int
		if i < len(a) {
			aPart = a[i]
		}
		if i < len(b) {
			bPart = b[i]
		}
		if aPart != bPart {
			return aPart - bPart
		}
	}
	return 0
}

// DistInfoDir returns the wheel's "{name}-{version}.dist-info" directory.
//
// Ambiguity is resolved the way pip's `wheel_dist_info_dir()` does: there must be exactly one.
func (wh *Wheel) DistInfoDir() (string, error) {
	infoDirs := make(map[string]struct{})
	for _, file := range wh.zip.File {
		dirname := strings.Split(path.Clean(file.FileHeader.Name), "/")[0]
		if strings.HasSuffix(dirname, ".dist-info") {
			infoDirs[dirname] = struct{}{}
		}
	}
	list := make([]string, 0, len(infoDirs))
	for dir := range infoDirs {
		list = append(list, dir)
	}
	sort.Strings(list)
	switch len(list) {
	case 0:
		return "", fmt.Errorf(".dist-info directory not found")
	case 1:
		return list[0], nil
	default:
		return "", fmt.Errorf("multiple .dist-info directories found: %v", list)
	}
}

func (wh *Wheel) Open(filename string) (io.ReadCloser, error) {
	filename = path.Clean(filename)
	for _, file := range wh.zip.File {
		if path.Clean(file.Name) == filename {
			return file.Open()
		}
	}
	return nil, fmt.Errorf("file does not exist in wheel zip archive: %q", filename)
}

func (wh *Wheel) readDistInfo(name string) ([]byte, error) {
	infoDir, err := wh.DistInfoDir()
	if err != nil {
		return nil, err
	}
	file, err := wh.Open(path.Join(infoDir, name))
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// CheckVersion parses the dist-info WHEEL file and checks that its Wheel-Version is one this
// package understands: a newer major version is an error, a newer minor version is a warning.
func (wh *Wheel) CheckVersion(ctx context.Context) error {
	content, err := wh.readDistInfo("WHEEL")
	if err != nil {
		return err
	}
	header, err := textproto.NewReader(bufio.NewReader(bytes.NewReader(append(content, '\n', '\n')))).ReadMIMEHeader()
	if err != nil {
		return fmt.Errorf("WHEEL: %w", err)
	}
	wheelVersion, err := parseVersion(header.Get("Wheel-Version"))
	if err != nil {
		return err
	}
	if wheelVersion[0] > specVersion[0] {
		return fmt.Errorf("wheel file's Wheel-Version (%s) is not compatible with this wheel parser", wheelVersion)
	}
	if vercmp(wheelVersion, specVersion) > 0 {
		dlog.Warnf(ctx, "wheel file's Wheel-Version (%s) is newer than this wheel parser", wheelVersion)
	}
	return nil
}

// Metadata returns the raw core metadata file (dist-info METADATA).
func (wh *Wheel) Metadata() ([]byte, error) {
	return wh.readDistInfo("METADATA")
}
