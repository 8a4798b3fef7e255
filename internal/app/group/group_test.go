package group

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"server-reward-engine/internal/dao"
)

func ref(id uint64) *uint64 { return &id }

func edge(id uint64, father *uint64, rewards int64) dao.ReferralEdge {
	return dao.ReferralEdge{ID: id, ReferredBy: father, TotalRewards: decimal.NewFromInt(rewards)}
}

func TestUpdateGroupRelation(t *testing.T) {
	defer Flush()
	err := UpdateGroupRelation([]dao.ReferralEdge{
		edge(1, nil, 10),
		edge(2, ref(1), 20),
		edge(3, ref(1), 30),
		edge(4, ref(2), 40),
		edge(5, ref(99), 50), // referrer gone
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 5}, Roots())
	assert.Equal(t, []uint64{2, 3}, GetDownLineUsers(1))
	assert.Empty(t, GetDownLineUsers(4))

	all, err := GetAllDownLineUsers(1, map[uint64]bool{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint64{2, 3, 4}, all)

	f, ok := GetFather(4)
	require.True(t, ok)
	assert.Equal(t, uint64(2), f)
	_, ok = GetFather(5)
	assert.False(t, ok)

	team, err := TeamRewards(1)
	require.NoError(t, err)
	assert.True(t, team.Equal(decimal.NewFromInt(90)), team.String())
	assert.True(t, Rewards(3).Equal(decimal.NewFromInt(30)))
}

func TestUpdateGroupRelationDetectsCycle(t *testing.T) {
	defer Flush()
	err := UpdateGroupRelation([]dao.ReferralEdge{
		edge(1, nil, 0),
		edge(2, ref(3), 0),
		edge(3, ref(2), 0),
	})
	assert.Error(t, err)
}

func TestGetAllDownLineUsersStopsOnRevisit(t *testing.T) {
	defer Flush()
	require.NoError(t, UpdateGroupRelation([]dao.ReferralEdge{
		edge(1, nil, 0),
		edge(2, ref(1), 0),
	}))
	_, err := GetAllDownLineUsers(1, map[uint64]bool{2: true})
	assert.Error(t, err)
}

func TestUpdateGroupRelationKeepsTreeOnCycle(t *testing.T) {
	defer Flush()
	require.NoError(t, UpdateGroupRelation([]dao.ReferralEdge{
		edge(1, nil, 10),
		edge(2, ref(1), 20),
	}))
	before := UpdatedAt()
	require.False(t, before.IsZero())

	err := UpdateGroupRelation([]dao.ReferralEdge{
		edge(1, nil, 0),
		edge(2, ref(1), 0),
		edge(7, ref(8), 0),
		edge(8, ref(7), 0),
	})
	require.Error(t, err)

	assert.Equal(t, []uint64{1}, Roots())
	assert.Equal(t, []uint64{2}, GetDownLineUsers(1))
	assert.False(t, Contains(7))
	_, ok := GetFather(8)
	assert.False(t, ok)
	assert.True(t, Rewards(2).Equal(decimal.NewFromInt(20)))
	assert.Equal(t, before, UpdatedAt())
}

func TestFlushResetsUpdatedAt(t *testing.T) {
	require.NoError(t, UpdateGroupRelation([]dao.ReferralEdge{edge(1, nil, 0)}))
	assert.True(t, Contains(1))
	Flush()
	assert.True(t, UpdatedAt().IsZero())
	assert.False(t, Contains(1))
}
