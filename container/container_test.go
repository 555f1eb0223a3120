// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of mirage.
//
// mirage is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// mirage is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with mirage.  If not, see <https://www.gnu.org/licenses/>.

package container_test

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"mirage/container"
)

func createTestZIP(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()

	zipPath := filepath.Join(dir, name)
	file, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip file: %v", err)
	}
	defer func() { _ = file.Close() }()

	w := zip.NewWriter(file)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create file in zip: %v", err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatalf("write file content: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return zipPath
}

func TestOpenUnsupportedExtension(t *testing.T) {
	if _, err := container.Open("image.tar"); err == nil {
		t.Fatalf("expected an error for an unsupported archive extension")
	}
}

func TestZIPRoundTrip(t *testing.T) {
	dir := t.TempDir()
	payload := make([]byte, 2048*3)
	for i := range payload {
		payload[i] = byte(i)
	}
	zipPath := createTestZIP(t, dir, "game.zip", map[string][]byte{"game.iso": payload})

	arc, err := container.Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	files, err := arc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Name != "game.iso" {
		t.Fatalf("unexpected listing: %+v", files)
	}
	if files[0].Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), files[0].Size)
	}

	reader, size, err := arc.Open("game.iso")
	if err != nil {
		t.Fatalf("Open(game.iso): %v", err)
	}
	defer func() { _ = reader.Close() }()
	if size != int64(len(payload)) {
		t.Fatalf("expected read size %d, got %d", len(payload), size)
	}
	got, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestZIPFileNotFound(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "game.zip", map[string][]byte{"game.iso": []byte("x")})

	arc, err := container.Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	if _, _, err := arc.Open("missing.bin"); err == nil {
		t.Fatalf("expected an error opening a nonexistent archive member")
	}
}

func TestSelectImageFileSingleMember(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "game.zip", map[string][]byte{"DISC01": []byte("iso-ish")})

	arc, err := container.Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	member, err := container.SelectImageFile(arc)
	if err != nil {
		t.Fatalf("SelectImageFile: %v", err)
	}
	if member != "DISC01" {
		t.Fatalf("expected the lone member to be selected, got %q", member)
	}
}

func TestSelectImageFilePrefersRecognizedSuffix(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "game.zip", map[string][]byte{
		"readme.txt": []byte("notes"),
		"game.bin":   []byte("data"),
	})

	arc, err := container.Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	member, err := container.SelectImageFile(arc)
	if err != nil {
		t.Fatalf("SelectImageFile: %v", err)
	}
	if member != "game.bin" {
		t.Fatalf("expected game.bin to be selected, got %q", member)
	}
}

func TestSelectImageFileAmbiguous(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "game.zip", map[string][]byte{
		"readme.txt": []byte("notes"),
		"license":    []byte("text"),
	})

	arc, err := container.Open(zipPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = arc.Close() }()

	if _, err := container.SelectImageFile(arc); err == nil {
		t.Fatalf("expected an error when no member is recognizable as a disc image")
	}
}
