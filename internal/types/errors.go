package types

import (
	"errors"
	"fmt"
)

var (
	ErrPayloadParse    = errors.New("payload parse error")
	ErrRecordsPath     = errors.New("records path error")
	ErrEmptyRecords    = errors.New("empty records")
	ErrManifest        = errors.New("manifest error")
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrNoPayloads      = errors.New("no payload files found")
	ErrStdinRepeated   = errors.New("stdin (-) may only be given once")
)

const (
	msgRecordsPath  = "Records path did not return an array"
	msgEmptyRecords = "No events found at the records path"
)

type ValidationError struct {
	Field   string `json:"field" yaml:"field"`
	Message string `json:"message" yaml:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error in field %s: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidManifest
}

type LoaderError struct {
	Path string
	Err  error
}

func (e LoaderError) Error() string {
	return fmt.Sprintf("failed to load from %s: %v", e.Path, e.Err)
}

func (e LoaderError) Unwrap() error {
	return e.Err
}

// PayloadParseError means the sample payload is not valid JSON
type PayloadParseError struct {
	Err error
}

func (e PayloadParseError) Error() string {
	return fmt.Sprintf("Sample payload is not valid JSON: %v", e.Err)
}

func (e PayloadParseError) Unwrap() error {
	return e.Err
}

func (e PayloadParseError) Is(target error) bool {
	return target == ErrPayloadParse
}

// RecordsPathError means mapping.recordsPath resolved to something other than an array
type RecordsPathError struct {
	Path string
	// Found is the JSON kind that was found instead, "missing" when unresolved.
	Found string
}

func (e RecordsPathError) Error() string {
	return msgRecordsPath
}

func (e RecordsPathError) Is(target error) bool {
	return target == ErrRecordsPath
}

// EmptyRecordsError means the records array exists but holds no events
type EmptyRecordsError struct {
	Path string
}

func (e EmptyRecordsError) Error() string {
	return msgEmptyRecords
}

func (e EmptyRecordsError) Is(target error) bool {
	return target == ErrEmptyRecords
}

// ManifestError reports a problem mapping one record. Index is 0-based.
type ManifestError struct {
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ManifestError) Error() string {
	return fmt.Sprintf("Record %d: %s", e.Index+1, e.Message)
}

func (e ManifestError) Is(target error) bool {
	return target == ErrManifest
}
