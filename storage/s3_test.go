package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestListingKey(t *testing.T) {
	id := uuid.MustParse("0b6f7d2e-1c1a-4a43-9d8e-3f3c2b1a0f00")
	at := time.Date(2025, 8, 31, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "listings/2025/08/31/0b6f7d2e-1c1a-4a43-9d8e-3f3c2b1a0f00.html", ListingKey(id, at))
}

func TestNoOpArchive(t *testing.T) {
	assert.NoError(t, NoOpArchive{}.Put(context.Background(), "k", []byte("x"), "text/html"))
}
