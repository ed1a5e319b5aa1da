package orgcontext

import (
	"context"
	"testing"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseActor(t *testing.T) {
	t.Run("well-formed headers", func(t *testing.T) {
		actor := ParseActor("12", "School", " 7 ")
		assert.Equal(t, domain.Actor{OrgID: 12, OrgKind: domain.OrgKindSchool, UserID: 7}, actor)
	})

	t.Run("user-only identity", func(t *testing.T) {
		actor := ParseActor("", "", "7")
		assert.Equal(t, domain.Actor{UserID: 7}, actor)
		assert.False(t, actor.HasOrg())
		assert.True(t, actor.HasUser())
	})

	t.Run("unknown kind zeroes the org pair", func(t *testing.T) {
		actor := ParseActor("12", "charity", "7")
		assert.Zero(t, actor.OrgID)
		assert.Empty(t, actor.OrgKind)
		assert.Equal(t, int64(7), actor.UserID)
	})

	t.Run("non-numeric org id zeroes the org pair", func(t *testing.T) {
		actor := ParseActor("twelve", "school", "")
		assert.Equal(t, domain.Actor{}, actor)
	})

	t.Run("kind without id yields no org identity", func(t *testing.T) {
		actor := ParseActor("", "company", "")
		assert.Equal(t, domain.Actor{}, actor)
	})

	t.Run("everything malformed is a zero actor", func(t *testing.T) {
		actor := ParseActor("x", "y", "z")
		assert.Equal(t, domain.Actor{}, actor)
		assert.False(t, actor.HasOrg())
		assert.False(t, actor.HasUser())
	})
}

func TestActorContextRoundTrip(t *testing.T) {
	actor := domain.Actor{OrgID: 3, OrgKind: domain.OrgKindCompany, UserID: 9}
	ctx := WithActor(context.Background(), actor)

	got, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, actor, got)

	_, ok = ActorFromContext(context.Background())
	assert.False(t, ok)
}
