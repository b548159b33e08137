//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
// Package output writes harvest results to files that are gzipped once they
// grow past a threshold, and reads them back transparently.
package output

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CompressThreshold is the number of bytes after which output is gzipped.
const CompressThreshold = 1024

var (
	ErrFileNotWriteable = errors.New("not opened for writing")
	ErrFileNotReadable  = errors.New("not opened for reading")
)

// MaybeCompressedFile is either a writer or a reader, never both.
type MaybeCompressedFile struct {
	w      *compresswriter
	r      *compressreader
	closed bool
}

// CreateMaybeCompressedFile creates a file, that may be compressed, if a
// certain amount of data is written to it. Nothing appears at filename
// before Close.
func CreateMaybeCompressedFile(filename string) *MaybeCompressedFile {
	return &MaybeCompressedFile{w: &compresswriter{filename: filename, threshold: CompressThreshold}}
}

// OpenMaybeCompressedFile returns a file, that may be transparently
// decompressed on the fly.
func OpenMaybeCompressedFile(filename string) (*MaybeCompressedFile, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	var reader io.Reader
	gz, err := gzip.NewReader(bufio.NewReader(file))
	switch err {
	case nil:
		reader = gz
	case gzip.ErrHeader, io.ErrUnexpectedEOF, io.EOF:
		gz = nil
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
		reader = bufio.NewReader(file)
	default:
		file.Close()
		return nil, err
	}
	return &MaybeCompressedFile{r: &compressreader{r: reader, gz: gz, file: file}}, nil
}

func (f *MaybeCompressedFile) Name() string {
	if f.w != nil {
		return f.w.filename
	}
	if f.r != nil {
		return f.r.file.Name()
	}
	return ""
}

func (f *MaybeCompressedFile) Read(p []byte) (n int, err error) {
	if f.r == nil {
		return 0, ErrFileNotReadable
	}
	return f.r.Read(p)
}

func (f *MaybeCompressedFile) Write(p []byte) (n int, err error) {
	if f.w == nil {
		return 0, ErrFileNotWriteable
	}
	return f.w.Write(p)
}

// Close finishes writing or releases the reader. Closing twice is a no-op.
func (f *MaybeCompressedFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.r != nil {
		return f.r.Close()
	}
	if f.w != nil {
		return f.w.Close()
	}
	return nil
}

// mkdirAll ensures a path exists and is a directory.
func mkdirAll(dir string) error {
	fi, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// writeFileAtomic writes to a temporary file next to filename and renames
// it into place.
func writeFileAtomic(filename string, r io.Reader, perm os.FileMode) error {
	dir, name := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, name+".tmp-")
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Chmod(perm); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), filename)
}

// compresswriter buffers everything in a temporary file and decides on Close
// whether to compress.
type compresswriter struct {
	filename  string
	threshold int
	tempfile  *os.File
	bw        *bufio.Writer
	written   int
}

func (w *compresswriter) init() error {
	tf, err := os.CreateTemp("", "oaiharvest-")
	if err != nil {
		return err
	}
	w.tempfile = tf
	w.bw = bufio.NewWriter(tf)
	return nil
}

func (w *compresswriter) Write(p []byte) (n int, err error) {
	if w.tempfile == nil {
		if err := w.init(); err != nil {
			return 0, err
		}
	}
	w.written += len(p)
	return w.bw.Write(p)
}

func (w *compresswriter) Close() error {
	if w.tempfile == nil {
		if err := w.init(); err != nil {
			return err
		}
	}
	defer func() {
		w.tempfile.Close()
		os.Remove(w.tempfile.Name())
	}()
	if err := w.bw.Flush(); err != nil {
		return err
	}
	if _, err := w.tempfile.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := mkdirAll(filepath.Dir(w.filename)); err != nil {
		return err
	}
	if w.written < w.threshold {
		return writeFileAtomic(w.filename, w.tempfile, 0644)
	}
	pr, pw := io.Pipe()
	go func() {
		gz := gzip.NewWriter(pw)
		if _, err := io.Copy(gz, bufio.NewReader(w.tempfile)); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(gz.Close())
	}()
	err := writeFileAtomic(w.filename, pr, 0644)
	pr.Close()
	return err
}

type compressreader struct {
	file *os.File
	r    io.Reader
	gz   *gzip.Reader
}

func (r *compressreader) Read(p []byte) (n int, err error) {
	return r.r.Read(p)
}

func (r *compressreader) Close() error {
	if r.gz != nil {
		if err := r.gz.Close(); err != nil {
			r.file.Close()
			return err
		}
	}
	return r.file.Close()
}
