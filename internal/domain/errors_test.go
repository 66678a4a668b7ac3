package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{
			"source error carries its own kind",
			&domain.SourceError{Source: "primary-cdn", Op: "fetch", Kind: domain.KindNetworkPermanent},
			domain.KindNetworkPermanent,
		},
		{
			"wrapped source error",
			fmt.Errorf("cascade: %w", &domain.SourceError{Source: "archive", Op: "fetch", Kind: domain.KindDataCorrupt}),
			domain.KindDataCorrupt,
		},
		{
			"configuration error",
			&domain.ConfigurationError{Reason: "undeclared domain"},
			domain.KindConfiguration,
		},
		{
			"deadline exceeded",
			context.DeadlineExceeded,
			domain.KindNetworkTransient,
		},
		{
			"unknown error defaults to transient",
			errors.New("something odd"),
			domain.KindNetworkTransient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.Classify(tt.err))
		})
	}
}

func TestSourceError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := &domain.SourceError{Source: "primary-cdn", Op: "fetch", Kind: domain.KindNetworkTransient, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "primary-cdn")
	assert.Contains(t, err.Error(), "NETWORK_TRANSIENT")
}

func TestDiagnosis_CoversAllKinds(t *testing.T) {
	kinds := []domain.ErrorKind{
		domain.KindNetworkTransient,
		domain.KindNetworkPermanent,
		domain.KindDataCorrupt,
		domain.KindConfiguration,
	}
	seen := make(map[string]bool)
	for _, k := range kinds {
		d := domain.Diagnosis(k)
		assert.NotEmpty(t, d)
		assert.False(t, seen[d], "diagnosis for %s duplicates another kind", k)
		seen[d] = true
	}
	assert.NotEmpty(t, domain.Diagnosis("SOMETHING_ELSE"))
}
