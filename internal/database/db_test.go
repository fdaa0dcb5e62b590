package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRequiresDatabaseURL(t *testing.T) {
	db, err := New("")

	assert.Nil(t, db)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
