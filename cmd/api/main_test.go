package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"timecapsule/internal/database"
)

func TestRun_ReturnsStartupError(t *testing.T) {
	t.Setenv("OTEL_SDK_DISABLED", "true")
	t.Setenv("DB_HOST", "")

	err := run()
	assert.ErrorIs(t, err, database.ErrInvalidConfig)
	assert.ErrorContains(t, err, "connect database")
}
