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
package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONLines writes one JSON document per line.
type JSONLines struct {
	bw  *bufio.Writer
	enc *json.Encoder
	n   int
}

// NewJSONLines buffers writes to w, call Flush when done.
func NewJSONLines(w io.Writer) *JSONLines {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	return &JSONLines{bw: bw, enc: enc}
}

// Encode writes v followed by a newline.
func (j *JSONLines) Encode(v any) error {
	if err := j.enc.Encode(v); err != nil {
		return err
	}
	j.n++
	return nil
}

// Count returns the number of documents written.
func (j *JSONLines) Count() int { return j.n }

func (j *JSONLines) Flush() error { return j.bw.Flush() }
