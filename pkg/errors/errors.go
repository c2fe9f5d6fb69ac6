// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PhotoStack Contributors

package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreOpenFailure      Code = "store.open.failure"
	CodeStoreDatabaseFailure  Code = "store.database.failure"
	CodeStoreInvalidInput     Code = "store.invalid_input"
	CodeStoreRecordNotFound   Code = "store.record.get.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeIngestSaveFailure       Code = "ingest.save.failure"
	CodeIngestPreprocessFailure Code = "ingest.preprocess.failure"
	CodeIngestInvalidInput      Code = "ingest.invalid_input"

	CodePreprocessDecodeFailure Code = "preprocess.decode.failure"
	CodePreprocessWriteFailure  Code = "preprocess.write.failure"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderResponseInvalid Code = "provider.response.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"

	CodeRetrievalInvalidInput Code = "retrieval.query.invalid_input"
	CodeRetrievalStoreFailure Code = "retrieval.store.failure"

	CodeQAInvalidInput     Code = "qa.question.invalid_input"
	CodeQAUpstreamFailure  Code = "qa.generate.upstream_failure"

	CodeWatcherSubmitFailure Code = "watcher.submit.failure"
	CodeWatcherFileVanished  Code = "watcher.file.vanished"
	CodeWatcherStartFailure  Code = "watcher.start.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerStartFailure    Code = "server.start.failure"

	CodeCLIInputInvalid   Code = "cli.input.invalid"
	CodeCLIRequestFailure Code = "cli.request.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// CodeOf extracts the Code from an error chain, or "" if none is attached.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}
	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}
	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

// FieldsOf returns the structured context of an error, or nil.
func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsInvalidInput reports whether the error's code ends in an
// invalid-input reason. Server handlers map these to HTTP 400.
func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func reason(code Code) string {
	s := string(code)
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return s
	}
	return s[i+1:]
}

func flatten(fields []Attr) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}
