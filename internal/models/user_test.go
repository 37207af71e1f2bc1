package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser(t *testing.T) {
	t.Run("SetPassword hashes password", func(t *testing.T) {
		user := &User{}
		plainPassword := "mySecurePassword123"

		err := user.SetPassword(plainPassword)
		require.NoError(t, err)

		assert.NotEqual(t, plainPassword, user.Password)
		assert.NotEmpty(t, user.Password)
		assert.True(t, user.CheckPassword(plainPassword))
		assert.False(t, user.CheckPassword("wrongPassword"))
		assert.False(t, user.CheckPassword(""))
	})

	t.Run("HasPhoneType and HasAddressType", func(t *testing.T) {
		user := &User{
			Phones:    []Phone{{TypeID: PhoneTypeBusiness}},
			Addresses: []Address{{TypeID: 11001}},
		}

		assert.True(t, user.HasPhoneType(PhoneTypeBusiness))
		assert.False(t, user.HasPhoneType(11007))
		assert.False(t, user.HasAddressType(AddressTypeBusiness))
		assert.True(t, user.HasAddressType(11001))
	})

	t.Run("Clone is deep", func(t *testing.T) {
		birthday := time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC)
		user := &User{
			ID:       7,
			Contact:  Contact{Birthday: &birthday},
			Phones:   []Phone{{Number: "555"}},
			GroupIDs: []int64{1, 2},
		}

		clone := user.Clone()
		clone.Phones[0].Number = "666"
		clone.GroupIDs[0] = 9
		*clone.Contact.Birthday = time.Time{}

		assert.Equal(t, "555", user.Phones[0].Number)
		assert.Equal(t, int64(1), user.GroupIDs[0])
		assert.Equal(t, birthday, *user.Contact.Birthday)
		assert.Nil(t, (*User)(nil).Clone())
	})

	t.Run("Apply copies every field", func(t *testing.T) {
		user := &User{ID: 3, Password: "hash", ScreenName: "old"}
		user.Apply(&UserUpdate{
			ScreenName:    "jdoe",
			EmailAddress:  "jdoe@example.com",
			FirstName:     "John",
			LastName:      "Doe",
			Male:          true,
			BirthdayMonth: time.July,
			BirthdayDay:   14,
			BirthdayYear:  1985,
			SkypeSn:       "jdoe.skype",
			JobTitle:      "Engineer",
			RoleIDs:       []int64{4},
		})

		assert.Equal(t, "jdoe", user.ScreenName)
		assert.Equal(t, "hash", user.Password)
		assert.Equal(t, "Engineer", user.JobTitle)
		assert.True(t, user.Contact.Male)
		assert.Equal(t, "jdoe.skype", user.Contact.SkypeSn)
		require.NotNil(t, user.Contact.Birthday)
		assert.Equal(t, time.Date(1985, time.July, 14, 0, 0, 0, 0, time.UTC), *user.Contact.Birthday)
		assert.Equal(t, []int64{4}, user.RoleIDs)
	})
}

func TestSyncDecision(t *testing.T) {
	assert.Equal(t, "skip_unchanged", SyncDecisionSkipUnchanged.String())
	assert.Equal(t, "unknown", SyncDecision(99).String())

	text, err := SyncDecisionFullUpdate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "full_update", string(text))

	assert.True(t, SyncDecisionSkipNeverModified.IsSkip())
	assert.True(t, SyncDecisionSkipDefaultUser.IsSkip())
	assert.False(t, SyncDecisionUpdatePasswordOnly.IsSkip())
	assert.False(t, SyncDecisionCreate.IsSkip())
}
