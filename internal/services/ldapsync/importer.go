package ldapsync

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// DirectorySyncEngine imports single directory entries into the portal.
type DirectorySyncEngine interface {
	ImportUser(ctx context.Context, companyID int64, attrs *ldap.Attributes, password string) (*Reconciliation, error)
	ImportUserGroup(ctx context.Context, companyID int64, attrs *ldap.Attributes) (*GroupImport, error)
}

// GroupImport is the outcome of importing one directory group. Group is nil
// when the group did not exist and could not be created.
type GroupImport struct {
	Group     *models.UserGroup
	Created   bool
	Updated   bool
	CreateErr *GroupCreateError
	Role      *models.Role
}

// Importer is the default DirectorySyncEngine.
type Importer struct {
	users       repository.UserStore
	groups      repository.GroupStore
	roles       repository.RoleStore
	mappings    ldap.Mappings
	mapper      ldap.Mapper
	transformer ldap.Transformer
	engine      *Engine
	settings    Settings
	metrics     *Metrics
	logger      *zerolog.Logger
}

var _ DirectorySyncEngine = (*Importer)(nil)

// NewImporter wires an importer around the portal stores.
func NewImporter(users repository.UserStore, groups repository.GroupStore, roles repository.RoleStore, mappings ldap.Mappings, opts ...Option) *Importer {
	o := buildOptions(opts)
	mapper := o.Mapper
	if mapper == nil {
		mapper = ldap.TableMapper{}
	}
	transformer := o.Transformer
	if transformer == nil {
		transformer = ldap.IdentityTransformer{}
	}
	return &Importer{
		users:       users,
		groups:      groups,
		roles:       roles,
		mappings:    mappings,
		mapper:      mapper,
		transformer: transformer,
		engine:      NewEngine(users, opts...),
		settings:    o.Settings,
		metrics:     o.Metrics,
		logger:      o.Logger,
	}
}

// Mappings returns the attribute mapping tables in use.
func (i *Importer) Mappings() ldap.Mappings {
	return i.mappings
}

// ImportUser maps attrs, finds the local user and reconciles it. Every write
// is issued under a directory origin marker scoped to this call.
func (i *Importer) ImportUser(ctx context.Context, companyID int64, attrs *ldap.Attributes, password string) (*Reconciliation, error) {
	ctx = repository.WithOrigin(ctx, repository.Origin{
		Source:   repository.OriginDirectoryUser,
		ServerID: i.settings.ServerID,
	})

	transformed, err := i.transformer.TransformUser(attrs)
	if err != nil {
		return nil, &MappingError{DN: attrs.DN, Err: err}
	}
	attrs = transformed

	incoming, err := i.mapper.MapUser(companyID, attrs, i.mappings, password)
	if err != nil {
		return nil, &MappingError{DN: attrs.DN, Err: err}
	}

	local, err := i.users.FindUser(ctx, companyID, incoming.ScreenName, incoming.EmailAddress)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		local = nil
	case err != nil:
		return nil, storageErr("find user", 0, err)
	}

	if local != nil && local.DefaultUser {
		i.logger.Debug().Int64("user_id", local.ID).Msg("skipping default user")
		i.metrics.decision(models.SyncDecisionSkipDefaultUser)
		return &Reconciliation{Decision: models.SyncDecisionSkipDefaultUser, User: local}, nil
	}

	result, err := i.engine.Reconcile(ctx, companyID, local, incoming, password, i.modifiedTimestamp(attrs))
	if err != nil {
		return nil, err
	}

	if result.Decision == models.SyncDecisionCreate || result.Decision == models.SyncDecisionFullUpdate {
		if len(incoming.Expando) > 0 || len(incoming.ContactExpando) > 0 {
			if err := i.users.UpdateExpando(ctx, result.User.ID, incoming.Expando, incoming.ContactExpando); err != nil {
				return nil, storageErr("update expando", result.User.ID, err)
			}
		}
	}

	i.metrics.decision(result.Decision)
	return result, nil
}

func (i *Importer) modifiedTimestamp(attrs *ldap.Attributes) string {
	name := i.mappings.User[ldap.UserModifiedDate]
	if name == "" {
		name = "modifyTimestamp"
	}
	return attrs.Get(name)
}

// ImportUserGroup creates or updates the portal user group named by attrs.
// A failed creation is reported on the result, not returned.
func (i *Importer) ImportUserGroup(ctx context.Context, companyID int64, attrs *ldap.Attributes) (*GroupImport, error) {
	transformed, err := i.transformer.TransformGroup(attrs)
	if err != nil {
		return nil, &MappingError{DN: attrs.DN, Err: err}
	}
	attrs = transformed

	incoming, err := i.mapper.MapGroup(companyID, attrs, i.mappings)
	if err != nil {
		return nil, &MappingError{DN: attrs.DN, Err: err}
	}

	result := &GroupImport{}
	log := i.logger.With().Str("group", incoming.Name).Logger()

	existing, err := i.groups.GetUserGroup(ctx, companyID, incoming.Name)
	switch {
	case err == nil:
		result.Group = existing
		if existing.Description != incoming.Description {
			updated, err := i.groups.UpdateUserGroup(ctx, existing.ID, incoming.Name, incoming.Description)
			if err != nil {
				return nil, storageErr("update user group", existing.ID, err)
			}
			result.Group = updated
			result.Updated = true
		}

	case errors.Is(err, repository.ErrGroupNotFound):
		log.Debug().Msg("adding user group to portal")

		defaultUserID, err := i.users.DefaultUserID(ctx, companyID)
		if err != nil {
			return nil, storageErr("get default user", companyID, err)
		}

		groupCtx := repository.WithOrigin(ctx, repository.Origin{
			Source:   repository.OriginDirectoryGroup,
			ServerID: i.settings.ServerID,
		})
		created, err := i.groups.AddUserGroup(groupCtx, defaultUserID, companyID, incoming.Name, incoming.Description)
		if err != nil {
			result.CreateErr = &GroupCreateError{Name: incoming.Name, Err: err}
			log.Warn().Msg("unable to create user group")
			log.Debug().Err(err).Msg("user group creation failed")
		} else {
			result.Group = created
			result.Created = true
		}

	default:
		return nil, storageErr("get user group", 0, err)
	}

	role, err := i.addRole(ctx, companyID, incoming, result.Group)
	if err != nil {
		return result, err
	}
	result.Role = role

	i.metrics.group(result)
	return result, nil
}

// addRole links the group to a regular role of the same name when roles per
// group are enabled. A nil group makes it a no-op.
func (i *Importer) addRole(ctx context.Context, companyID int64, incoming *models.DirectoryGroup, group *models.UserGroup) (*models.Role, error) {
	if !i.settings.CreateRolePerGroup || group == nil {
		return nil, nil
	}

	role, err := i.roles.GetRole(ctx, companyID, incoming.Name)
	if errors.Is(err, repository.ErrRoleNotFound) {
		role, err = i.roles.AddRole(ctx, &models.Role{
			CompanyID:   companyID,
			Name:        incoming.Name,
			Description: "Autogenerated role from directory import",
			Type:        models.RoleTypeRegular,
		})
	}
	if err != nil {
		return nil, storageErr("add role", group.ID, err)
	}

	if err := i.roles.AddGroupRole(ctx, group.ID, role.ID); err != nil {
		return nil, storageErr("add group role", group.ID, err)
	}
	return role, nil
}
