package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat/internal/log"
)

func TestSetup_NilConfig(t *testing.T) {
	t.Parallel()

	_, err := Setup(context.Background(), nil, log.NewNop())
	require.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	closed := 0
	a := &App{Logger: log.NewNop(), dbCleanup: func() { closed++ }}

	require.NoError(t, a.Close())
	require.NoError(t, a.Close())
	require.Equal(t, 1, closed, "cleanup must run exactly once")
}
