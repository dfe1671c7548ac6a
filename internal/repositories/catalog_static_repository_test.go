package repositories_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/models"
	"storefront/internal/repositories"
)

func TestStaticCatalogRepository(t *testing.T) {
	repo := repositories.NewStaticCatalogRepository(models.DefaultCatalog())

	items, err := repo.GetAll()
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "artist-management", items[0].ID)

	item, err := repo.GetByID("tech")
	require.NoError(t, err)
	tier, ok := item.Tier("")
	require.True(t, ok)
	assert.True(t, tier.Price.IsZero())

	_, err = repo.GetByID("unknown")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
