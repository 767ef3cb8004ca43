package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionInfo_DSN(t *testing.T) {
	info := ConnectionInfo{
		Host:     "db.internal",
		Port:     5433,
		Username: "forecast",
		DBName:   "revenue",
		SSLMode:  "disable",
		Password: "secret",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=forecast dbname=revenue sslmode=disable password=secret",
		info.DSN())
}
