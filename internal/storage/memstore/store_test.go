package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/storagetest"
)

func TestStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := &models.Post{Title: "t", Status: models.StatusActive, Tags: models.StringList{"a"}}
	require.NoError(t, s.CreatePost(ctx, p))
	assert.NotEmpty(t, p.ID)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Tags[0])
}
