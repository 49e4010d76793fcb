package session

import (
	"errors"

	"docqa/internal/assistant"
	"docqa/internal/llm"
	"docqa/internal/loader"
)

const (
	msgUnsupported  = "Unsupported file type"
	msgInvalidFile  = "Please upload a valid file"
	msgModelMissing = "Could not find LLM model: "
	msgNoData       = "Could not retrieve data. Did you forget to upload file?"
)

// UserMessage maps a pipeline error to the text shown to the user. Details
// stay in the logs.
func UserMessage(err error) string {
	var (
		modelErr *llm.ModelUnavailableError
		callErr  *assistant.ModelCallError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, loader.ErrUnsupportedFileType):
		return msgUnsupported
	case errors.Is(err, loader.ErrInvalidFile), errors.Is(err, ErrIndexBuild):
		return msgInvalidFile
	case errors.As(err, &modelErr):
		return msgModelMissing + modelErr.Model
	case errors.Is(err, llm.ErrModelUnavailable):
		return msgModelMissing + err.Error()
	case errors.As(err, &callErr):
		return msgModelMissing + callErr.Err.Error()
	default:
		return msgNoData
	}
}
