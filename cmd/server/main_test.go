package main

import (
	"testing"

	"github.com/dmitrijs2005/foodie/internal/server/config"
	"github.com/stretchr/testify/require"
)

func TestRun_RejectsInvalidConfig(t *testing.T) {
	err := run([]string{"-l", "loud"})
	require.ErrorIs(t, err, config.ErrInvalidLogLevel)
}

func TestRun_UnreachableDatabase(t *testing.T) {
	err := run([]string{"-d", "postgres://u:p@127.0.0.1:1/foodie?sslmode=disable&connect_timeout=1", "-m", ""})
	require.Error(t, err)
	require.Contains(t, err.Error(), "db init error")
}
