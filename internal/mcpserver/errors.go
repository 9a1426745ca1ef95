package mcpserver

import (
	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// ToolError is the {code, message, suggestion?} object a tool's JSON output
// carries under its "error" field when an operation fails (spec §4.9, §6),
// rather than surfacing through the transport's own error channel — a
// calling agent always gets back a well-formed result and branches on the
// presence of Error. The code is at error.code; code, message and
// suggestion are not placed at the top level of the output.
type ToolError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// wireCode maps the internal ERR_NNN_* taxonomy onto spec §4.8's short
// serving-surface codes. Only the codes the Search Engine/Discovery can
// actually raise at serve time are listed; anything else falls back to its
// internal code unchanged, since no tool contract names it.
var wireCode = map[string]string{
	minerrors.ErrCodeCollectionNotFound:    "COLLECTION_NOT_FOUND",
	minerrors.ErrCodeCollectionUnavailable: "COLLECTION_UNAVAILABLE",
	minerrors.ErrCodeDimensionMismatch:     "DIMENSION_MISMATCH",
}

// MapError converts an internal error into a tool output's error field.
// MinervaErrors carry their message/suggestion straight through and have their
// code translated to the short form the tool contract names (spec §4.8);
// any other error is reported under the generic internal code.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}
	ae, ok := err.(*minerrors.MinervaError)
	if !ok {
		return &ToolError{Code: minerrors.ErrCodeInternal, Message: err.Error()}
	}
	code := ae.Code
	if short, ok := wireCode[ae.Code]; ok {
		code = short
	}
	return &ToolError{
		Code:       code,
		Message:    ae.Message,
		Suggestion: ae.Suggestion,
	}
}
