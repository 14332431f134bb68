package cooldown_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/economy-engine/cooldown"
)

func TestKey(t *testing.T) {
	tests := []struct {
		entity cooldown.Entity
		want   string
	}{
		{cooldown.User(42), "user_42"},
		{cooldown.Guild(7), "guild_7"},
		{cooldown.Channel(8), "channel_8"},
		{cooldown.Role(9), "role_9"},
		{cooldown.Thread(10), "thread_10"},
		{cooldown.Custom("event:halloween"), "custom_event:halloween"},
	}
	for _, tt := range tests {
		key, err := cooldown.Key(tt.entity)
		require.NoError(t, err)
		assert.Equal(t, tt.want, key)
		assert.Equal(t, tt.entity, cooldown.ParseKey(key), "round trip of %s", key)
	}
}

func TestKey_Invalid(t *testing.T) {
	_, err := cooldown.Key(cooldown.Entity{Kind: "member", ID: "1"})
	assert.ErrorIs(t, err, cooldown.ErrUnknownEntityKind)

	_, err = cooldown.Key(cooldown.Entity{Kind: cooldown.KindUser})
	assert.ErrorIs(t, err, cooldown.ErrInvalidEntity)

	_, err = cooldown.Key(nil)
	assert.ErrorIs(t, err, cooldown.ErrInvalidEntity)
}

// member is a caller-side type that knows which entity it stands for.
type member struct {
	guildID, userID int64
}

func (m member) CooldownEntity() cooldown.Entity { return cooldown.User(m.userID) }

func TestKey_Identifiable(t *testing.T) {
	key, err := cooldown.Key(member{guildID: 1, userID: 99})
	require.NoError(t, err)
	assert.Equal(t, "user_99", key)
}

func TestParseKey_UnknownPrefix(t *testing.T) {
	e := cooldown.ParseKey("legacy_5")
	assert.Empty(t, e.Kind)
	assert.Equal(t, "legacy_5", e.ID)

	e = cooldown.ParseKey("nounderscore")
	assert.Empty(t, e.Kind)
}
