package bootstrap

import (
	"context"
	"testing"

	"github.com/arisehq/levelup/internal/model"
	"github.com/arisehq/levelup/internal/repository"
	"github.com/arisehq/levelup/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedBadges_IdempotentByName(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := repository.NewBadgeRepository(db)

	require.NoError(t, SeedBadges(context.Background(), repo, nil, ""))
	require.NoError(t, SeedBadges(context.Background(), repo, nil, ""))

	var count int64
	require.NoError(t, db.Model(&model.Badge{}).Count(&count).Error)
	assert.EqualValues(t, len(badgeCatalog), count)
}

func TestSeedDevUser_SkipsExisting(t *testing.T) {
	db := testutil.OpenTestDB(t)

	require.NoError(t, SeedDevUser(db))
	require.NoError(t, SeedDevUser(db))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
