package ldapsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository/memory"
)

const (
	testCompanyID = int64(1)
	testServerID  = int64(7)
)

var syncedAt = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users    *memory.UserRepository
	groups   *memory.GroupRepository
	roles    *memory.RoleRepository
	log      *logging.TestLogger
	importer *Importer
	mappings ldap.Mappings
}

func newFixture(t *testing.T, settings Settings, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		users:    memory.NewUserRepository(),
		groups:   memory.NewGroupRepository(),
		roles:    memory.NewRoleRepository(),
		log:      logging.NewTestLogger(t),
		mappings: ldap.DefaultMappings(),
	}
	settings.ServerID = testServerID

	all := append([]Option{WithLogger(f.log.Logger), WithSettings(settings)}, opts...)
	f.importer = NewImporter(f.users, f.groups, f.roles, f.mappings, all...)
	return f
}

// seedAda stores the local counterpart of adaEntry, last synchronized at
// syncedAt.
func (f *fixture) seedAda(t *testing.T) *models.User {
	t.Helper()

	u := &models.User{
		CompanyID:    testCompanyID,
		ScreenName:   "ada",
		EmailAddress: "ada@example.com",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		JobTitle:     "Analyst",
		ModifiedDate: syncedAt,
	}
	require.NoError(t, u.SetPassword("old-password"))
	return f.users.Seed(u)
}

func (f *fixture) seedDefaultUser() *models.User {
	return f.users.Seed(&models.User{
		CompanyID:    testCompanyID,
		DefaultUser:  true,
		ScreenName:   "default",
		EmailAddress: "default@example.com",
	})
}

func adaEntry(modifyTimestamp string) *ldap.Attributes {
	a := ldap.NewAttributes("uid=ada,ou=people,dc=example,dc=com")
	a.Set("uid", "ada")
	a.Set("mail", "ada@example.com")
	a.Set("givenName", "Ada")
	a.Set("sn", "Lovelace")
	a.Set("title", "Countess")
	if modifyTimestamp != "" {
		a.Set("modifyTimestamp", modifyTimestamp)
	}
	return a
}

func groupEntry(name, description string) *ldap.Attributes {
	a := ldap.NewAttributes("cn=" + name + ",ou=groups,dc=example,dc=com")
	a.Set("cn", name)
	if description != "" {
		a.Set("description", description)
	}
	a.Set("member", "uid=ada,ou=people,dc=example,dc=com")
	return a
}
