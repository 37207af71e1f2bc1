package ldapsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository/memory"
)

func TestImportUserGroup(t *testing.T) {
	ctx := context.Background()
	withRoles := DefaultSettings()
	withRoles.CreateRolePerGroup = true

	t.Run("missing group is created by the default user", func(t *testing.T) {
		f := newFixture(t, withRoles)
		def := f.seedDefaultUser()

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", "Builds things"))
		require.NoError(t, err)

		require.True(t, res.Created)
		require.NotNil(t, res.Group)
		assert.Nil(t, res.CreateErr)
		assert.Equal(t, "Engineering", res.Group.Name)
		assert.Equal(t, "Builds things", res.Group.Description)
		assert.Equal(t, def.ID, res.Group.CreatorUserID)

		writes := f.groups.Writes()
		require.Len(t, writes, 1)
		assert.Equal(t, memory.OpAddUserGroup, writes[0].Op)
		assert.Equal(t, repository.OriginDirectoryGroup, writes[0].Origin.Source)
		assert.Equal(t, testServerID, writes[0].Origin.ServerID)

		require.NotNil(t, res.Role)
		assert.Equal(t, "Engineering", res.Role.Name)
		assert.Equal(t, models.RoleTypeRegular, res.Role.Type)
		assert.Equal(t, []int64{res.Role.ID}, f.roles.GroupRoles(res.Group.ID))
	})

	t.Run("existing group with a new description is updated", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		existing := f.groups.Seed(&models.UserGroup{CompanyID: testCompanyID, Name: "Engineering", Description: "old"})

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", "new"))
		require.NoError(t, err)

		assert.True(t, res.Updated)
		assert.False(t, res.Created)
		assert.Equal(t, existing.ID, res.Group.ID)
		assert.Equal(t, "new", res.Group.Description)
		assert.Equal(t, []string{memory.OpUpdateUserGroup}, f.groups.Ops())
	})

	t.Run("unchanged group issues no writes", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		f.groups.Seed(&models.UserGroup{CompanyID: testCompanyID, Name: "Engineering", Description: "same"})

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", "same"))
		require.NoError(t, err)

		assert.False(t, res.Updated)
		assert.False(t, res.Created)
		assert.Empty(t, f.groups.Writes())
		assert.Empty(t, f.roles.Writes())
		assert.Nil(t, res.Role)
	})

	t.Run("existing role is reused", func(t *testing.T) {
		f := newFixture(t, withRoles)
		group := f.groups.Seed(&models.UserGroup{CompanyID: testCompanyID, Name: "Engineering"})
		role, err := f.roles.AddRole(ctx, &models.Role{CompanyID: testCompanyID, Name: "Engineering", Type: models.RoleTypeRegular})
		require.NoError(t, err)
		f.roles.ResetWrites()

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", ""))
		require.NoError(t, err)

		assert.Equal(t, role.ID, res.Role.ID)
		assert.Equal(t, []string{memory.OpAddGroupRole}, f.roles.Ops())
		assert.Equal(t, []int64{role.ID}, f.roles.GroupRoles(group.ID))
	})

	t.Run("failed creation is reported and role assignment is skipped", func(t *testing.T) {
		f := newFixture(t, withRoles)
		f.seedDefaultUser()
		boom := errors.New("duplicate key")
		f.groups.FailOn(memory.OpAddUserGroup, boom)

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", ""))
		require.NoError(t, err)

		require.NotNil(t, res.CreateErr)
		assert.Equal(t, "Engineering", res.CreateErr.Name)
		assert.ErrorIs(t, res.CreateErr, boom)
		assert.Nil(t, res.Group)
		assert.False(t, res.Created)
		assert.Nil(t, res.Role)
		assert.Empty(t, f.roles.Writes())
		assert.True(t, f.log.Contains("unable to create user group"))
	})

	t.Run("missing default user is a storage error", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())

		_, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", ""))
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.ErrorIs(t, err, repository.ErrUserNotFound)
		assert.Empty(t, f.groups.Writes())
	})

	t.Run("group without a name is a mapping error", func(t *testing.T) {
		f := newFixture(t, DefaultSettings())
		entry := groupEntry("x", "")
		entry.Remove("cn")

		_, err := f.importer.ImportUserGroup(ctx, testCompanyID, entry)
		var mappingErr *MappingError
		assert.ErrorAs(t, err, &mappingErr)
	})

	t.Run("role store failure is returned with the group", func(t *testing.T) {
		f := newFixture(t, withRoles)
		f.seedDefaultUser()
		f.roles.FailOn(memory.OpAddRole, errors.New("read only"))

		res, err := f.importer.ImportUserGroup(ctx, testCompanyID, groupEntry("Engineering", ""))
		var storageErr *StorageError
		require.ErrorAs(t, err, &storageErr)
		require.NotNil(t, res)
		assert.True(t, res.Created)
	})
}
