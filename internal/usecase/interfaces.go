package usecase

import (
	"context"
	"encoding/json"
)

// UploadFile is one file part of a multipart upload.
type UploadFile struct {
	// Field is the form field name the backend expects, e.g. "file".
	Field string
	// Name is the original filename reported to the backend.
	Name string
	// Content is the file body. Single-use by construction: multipart calls
	// are never replayed.
	Content []byte
}

// Executor is the outbound port for authenticated REST calls against the PIM
// backend. Implementations absorb transient failures and token staleness up
// to their attempt budget and surface exactly one classified error per
// logical call.
//
// Per-request deadlines tighter than the executor's default ride in on ctx.
type Executor interface {
	Execute(ctx context.Context, method, path string, body any) (json.RawMessage, error)
	ExecuteMultipart(ctx context.Context, path string, fields map[string]string, file UploadFile) (json.RawMessage, error)
}
