package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3btraders/ims/internal/domain/catalog"
	"github.com/3btraders/ims/internal/domain/shared"
)

func TestResolveShop(t *testing.T) {
	c := catalog.BuildCatalog([]catalog.Shop{
		{ID: "1", Name: "Kigali Central"},
		{ID: "2", Name: "Musanze"},
	})

	id, err := resolveShop(c, "2")
	require.NoError(t, err)
	assert.Equal(t, shared.ID("2"), id)

	id, err = resolveShop(c, " kigali central ")
	require.NoError(t, err)
	assert.Equal(t, shared.ID("1"), id)

	_, err = resolveShop(c, "")
	assert.ErrorIs(t, err, shared.ErrSelectionRequired)

	_, err = resolveShop(c, "Huye")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
