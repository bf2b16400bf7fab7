package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

func TestRequireID(t *testing.T) {
	_, err := RequireID(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	tid := id.New()
	ctx := WithID(context.Background(), tid)

	got, err := RequireID(ctx)
	require.NoError(t, err)
	assert.Equal(t, tid, got)
	assert.Equal(t, tid.String(), GetTenantID(ctx))
}

func TestNilIDIsTreatedAsMissing(t *testing.T) {
	ctx := WithID(context.Background(), id.Nil())

	_, ok := ID(ctx)
	assert.False(t, ok)
	assert.Empty(t, GetTenantID(ctx))
}
