package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	minerrors "github.com/michele-orsini-71/minerva/internal/errors"
)

func TestExitCodeFor_UserActionableCategoriesReturn1(t *testing.T) {
	cases := []error{
		minerrors.ConfigError("bad config", nil),
		minerrors.CredentialMissing("missing cred", nil),
		minerrors.ProviderUnavailable("down", nil),
		minerrors.ValidationError("bad note", nil),
		minerrors.StorageError("disk full", nil),
		minerrors.CollectionNotFound("no such collection", nil),
	}
	for _, err := range cases {
		assert.Equal(t, 1, exitCodeFor(err), err.Error())
	}
}

func TestExitCodeFor_InternalAndUnclassifiedErrorsReturn2(t *testing.T) {
	assert.Equal(t, 2, exitCodeFor(minerrors.InternalError("panic recovered", nil)))
	assert.Equal(t, 2, exitCodeFor(errors.New("bare error")))
}
