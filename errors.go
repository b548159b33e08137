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
package oaiharvest

import (
	"errors"
	"fmt"
)

var (
	ErrNoEndpoint       = errors.New("request: an endpoint is required")
	ErrBadVerb          = errors.New("bad verb")
	ErrNoResumption     = errors.New("verb does not accept a resumption token")
	ErrNoToken          = errors.New("cursor carries no resumption token")
	ErrRetryExhausted   = errors.New("retries exhausted")
	ErrEmptyResult      = errors.New("empty result")
	ErrTooManyRequests  = errors.New("too many requests")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrUnknownPrefix    = errors.New("no decoder registered for metadata prefix")
)

// Error codes a repository may report (3.6 Error and Exception Conditions).
const (
	CodeBadArgument             = "badArgument"
	CodeBadResumptionToken      = "badResumptionToken"
	CodeBadVerb                 = "badVerb"
	CodeCannotDisseminateFormat = "cannotDisseminateFormat"
	CodeIDDoesNotExist          = "idDoesNotExist"
	CodeNoRecordsMatch          = "noRecordsMatch"
	CodeNoMetadataFormats       = "noMetadataFormats"
	CodeNoSetHierarchy          = "noSetHierarchy"
)

// ProtocolError wraps OAI error codes and messages.
type ProtocolError struct {
	Code    string
	Message string
}

// Error to satisfy interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// TransportKind tells apart the ways a single HTTP exchange can fail.
type TransportKind int

const (
	KindConnection TransportKind = iota
	KindTimeout
	KindStatus
	KindExhausted
	KindCanceled
)

func (k TransportKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	case KindStatus:
		return "status"
	case KindExhausted:
		return "exhausted"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// TransportError is returned when the repository could not be reached or
// answered with an HTTP status we do not accept.
type TransportError struct {
	Kind       TransportKind
	StatusCode int
	URL        string
	Attempts   int
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("transport: %s returned HTTP %d", e.URL, e.StatusCode)
	case KindExhausted:
		return fmt.Sprintf("transport: %s still unavailable after %d attempts", e.URL, e.Attempts)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRetryExhausted) work for exhausted retries.
func (e *TransportError) Is(target error) bool {
	return target == ErrRetryExhausted && e.Kind == KindExhausted
}

// MalformedResponseError means the response could not be read as the
// expected verb, e.g. truncated bodies or list containers without children.
type MalformedResponseError struct {
	Verb   Verb
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed %s response: %s: %v", e.Verb, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed %s response: %s", e.Verb, e.Reason)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// DecodeError is returned when a metadata payload cannot be decoded, most
// often because no decoder is registered for the prefix.
type DecodeError struct {
	Prefix string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Prefix, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsRetryable reports whether the same request may succeed later. Only a
// repository that stayed unavailable past the retry bound qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}

// IsCode reports whether err is a ProtocolError with the given code.
func IsCode(err error, code string) bool {
	var perr *ProtocolError
	return errors.As(err, &perr) && perr.Code == code
}
