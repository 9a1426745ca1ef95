package errors_test

import (
	"errors"
	"strings"
	"testing"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

// TestErrorWrapping_ProviderCall verifies provider-call failures are wrapped
// with context that survives through errors.Is/errors.As.
func TestErrorWrapping_ProviderCall(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	err := minerrors.ProviderErr("embedding request to ollama failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped error to unwrap to cause, got: %v", err)
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "ERR_302_PROVIDER_ERROR") {
		t.Errorf("expected error message to contain provider error code, got: %s", errMsg)
	}
}

// TestErrorWrapping_CredentialMissing verifies credential resolution failures
// carry the unresolved placeholder through Details.
func TestErrorWrapping_CredentialMissing(t *testing.T) {
	err := minerrors.CredentialMissing("unresolved credential reference", nil).
		WithDetail("reference", "${OPENAI_API_KEY}")

	if err.Details["reference"] != "${OPENAI_API_KEY}" {
		t.Errorf("expected detail to carry unresolved reference, got: %v", err.Details)
	}
}

// TestErrorWrapping_StorageError verifies vector-store failures wrap the
// underlying driver error rather than discarding it.
func TestErrorWrapping_StorageError(t *testing.T) {
	cause := errors.New("database is locked")

	err := minerrors.StorageError("failed to upsert chunk batch", cause)

	var target *minerrors.MinervaError
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to match *MinervaError")
	}
	if target.Cause == nil || target.Cause.Error() != "database is locked" {
		t.Errorf("expected cause to be preserved, got: %v", target.Cause)
	}
}
