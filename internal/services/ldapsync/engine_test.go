package ldapsync

import (
	"context"
	"errors"
	"testing"
	"time"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository/memory"
)

func TestImportUser_TimestampGate(t *testing.T) {
	ctx := context.Background()

	t.Run("unchanged entry with auto password issues no writes", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		before := f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240501120000Z"), "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionSkipUnchanged, res.Decision)
		assert.Empty(t, f.users.Writes())
		after, ok := f.users.Get(before.ID)
		require.True(t, ok)
		assert.Equal(t, before, after)
	})

	t.Run("fractional seconds compare equal", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240501120000.0Z"), "")
		require.NoError(t, err)
		assert.Equal(t, models.SyncDecisionSkipUnchanged, res.Decision)
		assert.Empty(t, f.users.Writes())
	})

	t.Run("unchanged entry with password only updates the password", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		before := f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240501120000Z"), "n3w-secret")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionUpdatePasswordOnly, res.Decision)
		assert.Equal(t, []string{memory.OpUpdatePassword}, f.users.Ops())

		after, _ := f.users.Get(before.ID)
		assert.True(t, after.CheckPassword("n3w-secret"))
		assert.Equal(t, "Analyst", after.JobTitle, "mapped fields must not change")
		assert.Equal(t, before.ModifiedDate, after.ModifiedDate)
	})

	t.Run("newer entry is fully updated and stamped with the directory time", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		before := f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601083000Z"), "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionFullUpdate, res.Decision)
		assert.Nil(t, res.TimestampErr)
		assert.Equal(t, []string{
			memory.OpUpdateFields,
			memory.OpUpdateStatus,
			memory.OpUpdateModifiedDate,
			memory.OpDeletePortrait,
		}, f.users.Ops())

		after, _ := f.users.Get(before.ID)
		assert.Equal(t, "Countess", after.JobTitle)
		assert.True(t, after.ModifiedDate.Equal(time.Date(2024, time.June, 1, 8, 30, 0, 0, time.UTC)))
		assert.True(t, after.CheckPassword("old-password"))
	})

	t.Run("newer entry with a photo replaces the portrait", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		before := f.seedAda(t)
		photo := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

		entry := adaEntry("20240601083000Z")
		entry.AddBytes("jpegPhoto", photo)

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionFullUpdate, res.Decision)
		assert.Contains(t, f.users.Ops(), memory.OpUpdatePortrait)
		assert.NotContains(t, f.users.Ops(), memory.OpDeletePortrait)

		stored, ok := f.users.Portrait(before.ID)
		require.True(t, ok)
		assert.Equal(t, photo, stored)

		f.users.ResetWrites()
		res, err = f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240701000000Z"), "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionFullUpdate, res.Decision)
		assert.Contains(t, f.users.Ops(), memory.OpDeletePortrait)
		assert.NotContains(t, f.users.Ops(), memory.OpUpdatePortrait)
		_, ok = f.users.Portrait(before.ID)
		assert.False(t, ok)
	})

	t.Run("entry without modification time is skipped for existing users", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry(""), "n3w-secret")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionSkipNeverModified, res.Decision)
		assert.Empty(t, f.users.Writes())
		assert.True(t, f.log.Contains("never modified"))
	})

	t.Run("unreadable timestamp falls through to a full update without stamp", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		before := f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("yesterday"), "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionFullUpdate, res.Decision)
		require.NotNil(t, res.TimestampErr)
		assert.Equal(t, "yesterday", res.TimestampErr.Value)
		assert.ErrorIs(t, res.TimestampErr, ber.ErrInvalidTimeFormat)
		assert.NotContains(t, f.users.Ops(), memory.OpUpdateModifiedDate)

		after, _ := f.users.Get(before.ID)
		assert.Equal(t, "Countess", after.JobTitle)
		assert.False(t, after.ModifiedDate.Equal(before.ModifiedDate))
	})

	t.Run("default user is never touched", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		def := f.seedDefaultUser()

		entry := ldap.NewAttributes("uid=default,dc=example,dc=com")
		entry.Set("uid", "default")
		entry.Set("mail", "default@example.com")
		entry.Set("modifyTimestamp", "20300101000000Z")

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "pw")
		require.NoError(t, err)
		assert.Equal(t, models.SyncDecisionSkipDefaultUser, res.Decision)
		assert.Equal(t, def.ID, res.User.ID)
		assert.Empty(t, f.users.Writes())
	})
}

func TestImportUser_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("new entry without screen name gets a generated one and business contacts", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())

		entry := ldap.NewAttributes("cn=Jane Doe,ou=people,dc=example,dc=com")
		entry.Set("mail", "Jane.Doe@example.com")
		entry.Set("givenName", "Jane")
		entry.Set("sn", "Doe")
		entry.Set("telephoneNumber", "+1 555 0100")
		entry.Set("street", "1 Main St")
		entry.Set("l", "Springfield")
		entry.Set("postalCode", "12345")
		entry.Set("modifyTimestamp", "20240501120000Z")

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionCreate, res.Decision)
		require.NotNil(t, res.User)
		assert.Equal(t, "jane.doe", res.User.ScreenName)
		assert.Equal(t, memory.OpCreateUser, f.users.Ops()[0])

		stored, ok := f.users.Get(res.User.ID)
		require.True(t, ok)
		assert.Equal(t, "jane.doe", stored.ScreenName)
		assert.True(t, stored.ModifiedDate.Equal(syncedAt))

		require.Len(t, stored.Phones, 1)
		phone := stored.Phones[0]
		assert.Equal(t, models.PhoneTypeBusiness, phone.TypeID)
		assert.Equal(t, "+1 555 0100", phone.Number)
		assert.Equal(t, models.ClassNameContact, phone.ClassName)
		assert.Equal(t, stored.ContactID, phone.ClassPK)

		require.Len(t, stored.Addresses, 1)
		addr := stored.Addresses[0]
		assert.Equal(t, models.AddressTypeBusiness, addr.TypeID)
		assert.Equal(t, "1 Main St", addr.Street1)
		assert.Empty(t, addr.Street2)
		assert.Empty(t, addr.Street3)
		assert.Equal(t, "Springfield", addr.City)
		assert.Equal(t, "12345", addr.Zip)
		assert.Zero(t, addr.RegionID)
		assert.Zero(t, addr.CountryID)
		assert.True(t, addr.Mailing)
		assert.True(t, addr.Primary)

		require.NotNil(t, res.Enrichment)
		assert.False(t, res.Enrichment.Empty())
	})

	t.Run("new entry without modification time is still fully populated", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry(""), "")
		require.NoError(t, err)

		assert.Equal(t, models.SyncDecisionCreate, res.Decision)
		assert.Contains(t, f.users.Ops(), memory.OpUpdateFields)
		assert.NotContains(t, f.users.Ops(), memory.OpUpdateModifiedDate)
		stored, _ := f.users.Get(res.User.ID)
		assert.Equal(t, "ada", stored.ScreenName)
		assert.Equal(t, "Countess", stored.JobTitle)
	})

	t.Run("generated screen names avoid taken ones", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.users.Seed(&models.User{CompanyID: testCompanyID, ScreenName: "jane.doe", EmailAddress: "other@example.com"})

		entry := ldap.NewAttributes("cn=Jane Doe,dc=example,dc=com")
		entry.Set("mail", "jane.doe@example.com")

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		require.NoError(t, err)
		assert.Equal(t, "jane.doe.1", res.User.ScreenName)
	})

	t.Run("missing birthday is stored as the epoch", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240501120000Z"), "")
		require.NoError(t, err)

		stored, _ := f.users.Get(res.User.ID)
		require.NotNil(t, stored.Contact.Birthday)
		assert.True(t, stored.Contact.Birthday.Equal(time.Unix(0, 0)))
	})
}

func TestImportUser_Enrichment(t *testing.T) {
	ctx := context.Background()

	withContacts := func(stamp string) *ldap.Attributes {
		a := adaEntry(stamp)
		a.Set("telephoneNumber", "555-0101")
		a.Set("street", "12 Analytical Way")
		a.Set("l", "London")
		return a
	}

	t.Run("repeated imports add business entries once", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		ada := f.seedAda(t)

		_, err := f.importer.ImportUser(ctx, testCompanyID, withContacts("20240601000000Z"), "")
		require.NoError(t, err)
		_, err = f.importer.ImportUser(ctx, testCompanyID, withContacts("20240701000000Z"), "")
		require.NoError(t, err)

		stored, _ := f.users.Get(ada.ID)
		assert.Len(t, stored.Phones, 1)
		assert.Len(t, stored.Addresses, 1)
	})

	t.Run("existing business entries are left alone", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		seed := &models.User{
			CompanyID:    testCompanyID,
			ScreenName:   "ada",
			EmailAddress: "ada@example.com",
			ModifiedDate: syncedAt,
			Phones:       []models.Phone{{Number: "000", TypeID: models.PhoneTypeBusiness}},
			Addresses:    []models.Address{{Street1: "Old St", City: "Bath", TypeID: models.AddressTypeBusiness}},
		}
		ada := f.users.Seed(seed)

		res, err := f.importer.ImportUser(ctx, testCompanyID, withContacts("20240601000000Z"), "")
		require.NoError(t, err)

		assert.True(t, res.Enrichment.Empty())
		assert.NotContains(t, f.users.Ops(), memory.OpAddPhone)
		assert.NotContains(t, f.users.Ops(), memory.OpAddAddress)
		stored, _ := f.users.Get(ada.ID)
		assert.Equal(t, "000", stored.Phones[0].Number)
		assert.Equal(t, "Old St", stored.Addresses[0].Street1)
	})

	t.Run("address needs both street and city", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.seedAda(t)

		entry := adaEntry("20240601000000Z")
		entry.Set("street", "12 Analytical Way")

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		require.NoError(t, err)
		assert.True(t, res.Enrichment.Empty())
	})

	t.Run("enricher is idempotent on the same record", func(t *testing.T) {
		users := memory.NewUserRepository()
		user := users.Seed(&models.User{CompanyID: testCompanyID, ScreenName: "ada"})
		incoming := &models.DirectoryUser{Phone: "555", Street: "1 Main", City: "Town"}

		enricher := NewEnricher(users)
		first, err := enricher.Enrich(ctx, user, incoming)
		require.NoError(t, err)
		second, err := enricher.Enrich(ctx, user, incoming)
		require.NoError(t, err)

		assert.False(t, first.Empty())
		assert.True(t, second.Empty())
		stored, _ := users.Get(user.ID)
		assert.Len(t, stored.Phones, 1)
		assert.Len(t, stored.Addresses, 1)
	})
}

func TestImportUser_Passwords(t *testing.T) {
	ctx := context.Background()

	t.Run("screen name token uses the screen name as password", func(t *testing.T) {
		settings := DefaultSettings()
		settings.ImportPasswordEnabled = false
		settings.DefaultPassword = "SCREENNAME"
		f := newFixture(t, settings)
		ada := f.seedAda(t)

		res, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240501120000Z"), "directory-pw")
		require.NoError(t, err)
		require.Equal(t, models.SyncDecisionUpdatePasswordOnly, res.Decision)

		stored, _ := f.users.Get(ada.ID)
		assert.True(t, stored.CheckPassword("ada"))
		assert.False(t, stored.CheckPassword("directory-pw"))
	})

	t.Run("screen name token resolves to the generated screen name", func(t *testing.T) {
		settings := DefaultSettings()
		settings.ImportPasswordEnabled = false
		settings.DefaultPassword = "screenName"
		generator := ScreenNameGeneratorFunc(func(ctx context.Context, companyID, userID int64, emailAddress string) (string, error) {
			return "ada.lovelace", nil
		})
		f := newFixture(t, settings, WithScreenNameGenerator(generator))
		ada := f.seedAda(t)

		entry := adaEntry("20240601000000Z")
		entry.Remove("uid")

		res, err := f.importer.ImportUser(ctx, testCompanyID, entry, "directory-pw")
		require.NoError(t, err)
		require.Equal(t, models.SyncDecisionFullUpdate, res.Decision)

		stored, _ := f.users.Get(ada.ID)
		assert.Equal(t, "ada.lovelace", stored.ScreenName)
		assert.True(t, stored.CheckPassword("ada.lovelace"))
		assert.False(t, stored.CheckPassword("ada"))
	})

	t.Run("fixed default password replaces the directory one", func(t *testing.T) {
		settings := DefaultSettings()
		settings.ImportPasswordEnabled = false
		settings.DefaultPassword = "Welcome-2024"
		f := newFixture(t, settings)
		ada := f.seedAda(t)

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "directory-pw")
		require.NoError(t, err)

		stored, _ := f.users.Get(ada.ID)
		assert.True(t, stored.CheckPassword("Welcome-2024"))
	})

	t.Run("export keeps the local password reset flag", func(t *testing.T) {
		settings := DefaultSettings()
		settings.ExportEnabled = true
		f := newFixture(t, settings)
		ada := f.users.Seed(&models.User{
			CompanyID:     testCompanyID,
			ScreenName:    "ada",
			EmailAddress:  "ada@example.com",
			PasswordReset: true,
			ModifiedDate:  syncedAt,
		})

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "")
		require.NoError(t, err)

		stored, _ := f.users.Get(ada.ID)
		assert.True(t, stored.PasswordReset)
	})

	t.Run("without export the directory flag wins", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		ada := f.users.Seed(&models.User{
			CompanyID:     testCompanyID,
			ScreenName:    "ada",
			EmailAddress:  "ada@example.com",
			PasswordReset: true,
			ModifiedDate:  syncedAt,
		})

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "")
		require.NoError(t, err)

		stored, _ := f.users.Get(ada.ID)
		assert.False(t, stored.PasswordReset)
	})
}

func TestImportUser_OriginMarker(t *testing.T) {
	f := newFixture(t, DefaultSettings())
	f.seedAda(t)

	ctx := context.Background()
	_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "pw")
	require.NoError(t, err)

	writes := f.users.Writes()
	require.NotEmpty(t, writes)
	for _, w := range writes {
		assert.Equal(t, repository.OriginDirectoryUser, w.Origin.Source, w.Op)
		assert.Equal(t, testServerID, w.Origin.ServerID, w.Op)
	}
	assert.False(t, repository.OriginFrom(ctx).FromDirectory())

	t.Run("marker is cleared after a failed import", func(t *testing.T) {
		f.users.FailOn(memory.OpUpdateFields, errors.New("disk full"))
		defer f.users.FailOn(memory.OpUpdateFields, nil)

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240801000000Z"), "")
		require.Error(t, err)
		assert.False(t, repository.OriginFrom(ctx).FromDirectory())
	})
}

func TestImportUser_Expando(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, DefaultSettings())
	f.mappings.UserExpando = map[string]string{"costCenter": "departmentNumber"}
	f.importer = NewImporter(f.users, f.groups, f.roles, f.mappings,
		WithLogger(f.log.Logger), WithSettings(Settings{ServerID: testServerID, ImportPasswordEnabled: true}))
	ada := f.seedAda(t)

	entry := adaEntry("20240601000000Z")
	entry.Set("departmentNumber", "CC-42")

	_, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
	require.NoError(t, err)

	userAttrs, _ := f.users.Expando(ada.ID)
	assert.Equal(t, map[string]string{"costCenter": "CC-42"}, userAttrs)

	t.Run("not written when the entry is skipped", func(t *testing.T) {
		f.users.ResetWrites()
		_, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		require.NoError(t, err)
		assert.NotContains(t, f.users.Ops(), memory.OpUpdateExpando)
	})
}

func TestImportUser_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("missing email is a mapping error", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		entry := ldap.NewAttributes("uid=ghost,dc=example,dc=com")
		entry.Set("uid", "ghost")

		_, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		var mappingErr *MappingError
		require.ErrorAs(t, err, &mappingErr)
		assert.Equal(t, "uid=ghost,dc=example,dc=com", mappingErr.DN)
		var attrErr *ldap.AttributeError
		assert.ErrorAs(t, err, &attrErr)
		assert.Empty(t, f.users.Writes())
	})

	t.Run("store failures surface as storage errors", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.seedAda(t)
		f.users.FailOn(memory.OpUpdateStatus, boom)

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "")
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.Equal(t, "update status", storageErr.Op)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("failed create stops the import", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.users.FailOn(memory.OpCreateUser, boom)

		_, err := f.importer.ImportUser(ctx, testCompanyID, adaEntry("20240601000000Z"), "")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, []string{memory.OpCreateUser}, f.users.Ops())
	})

	t.Run("screen name generator failure is a mapping error", func(t *testing.T) {
		f := newFixture(t, DefaultSettings(), WithScreenNameGenerator(ScreenNameGeneratorFunc(
			func(context.Context, int64, int64, string) (string, error) { return "", boom },
		)))
		entry := ldap.NewAttributes("cn=x,dc=example,dc=com")
		entry.Set("mail", "x@example.com")

		_, err := f.importer.ImportUser(ctx, testCompanyID, entry, "")
		var mappingErr *MappingError
		require.ErrorAs(t, err, &mappingErr)
		assert.ErrorIs(t, err, boom)
	})
}

type titleTransformer struct{ ldap.IdentityTransformer }

func (titleTransformer) TransformUser(attrs *ldap.Attributes) (*ldap.Attributes, error) {
	c := attrs.Clone()
	c.Set("title", "Transformed")
	return c, nil
}

func TestImportUser_Transformer(t *testing.T) {
	f := newFixture(t, DefaultSettings(), WithTransformer(titleTransformer{}))
	ada := f.seedAda(t)

	_, err := f.importer.ImportUser(context.Background(), testCompanyID, adaEntry("20240601000000Z"), "")
	require.NoError(t, err)

	stored, _ := f.users.Get(ada.ID)
	assert.Equal(t, "Transformed", stored.JobTitle)
}
