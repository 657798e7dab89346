package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/aseriousbiz/abbot/pkg/usecase"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotSlackOrganization", usecase.ErrNotSlackOrganization},
		{"ErrNoAPIToken", usecase.ErrNoAPIToken},
		{"ErrUnexpectedPayload", usecase.ErrUnexpectedPayload},
		{"ErrInstallFailed", usecase.ErrInstallFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrNotSlackOrganization, usecase.ErrNoAPIToken)).False()
	gt.Bool(t, errors.Is(usecase.ErrUnexpectedPayload, usecase.ErrInstallFailed)).False()
}
