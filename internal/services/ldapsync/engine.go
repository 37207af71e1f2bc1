package ldapsync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Reconciliation is the outcome of reconciling one directory user.
type Reconciliation struct {
	Decision   models.SyncDecision
	User       *models.User
	Enrichment *Enrichment
	// TimestampErr is set when the directory timestamp was unreadable and
	// the user was fully updated instead.
	TimestampErr *TimestampParseError
}

// Engine decides whether a directory user creates, skips or updates its
// local counterpart and issues the matching store writes.
type Engine struct {
	users       repository.UserStore
	enricher    *Enricher
	screenNames ScreenNameGenerator
	settings    Settings
	logger      *zerolog.Logger
}

// NewEngine creates an engine writing through users.
func NewEngine(users repository.UserStore, opts ...Option) *Engine {
	o := buildOptions(opts)
	screenNames := o.ScreenNames
	if screenNames == nil {
		screenNames = NewDefaultScreenNameGenerator(users)
	}
	return &Engine{
		users:       users,
		enricher:    &Enricher{users: users, logger: o.Logger},
		screenNames: screenNames,
		settings:    o.Settings,
		logger:      o.Logger,
	}
}

// Reconcile brings local in line with incoming. A nil local provisions a new
// user first. directoryModifiedAt is the raw directory modification
// timestamp; empty means the directory did not supply one.
func (e *Engine) Reconcile(ctx context.Context, companyID int64, local *models.User, incoming *models.DirectoryUser, password, directoryModifiedAt string) (*Reconciliation, error) {
	result := &Reconciliation{Decision: models.SyncDecisionFullUpdate, User: local}
	log := e.logger.With().Str("email", incoming.EmailAddress).Str("dn", incoming.DN).Logger()

	isNew := false
	if local == nil {
		created, err := e.users.CreateUser(ctx, e.newUser(companyID, incoming, password))
		if err != nil {
			return nil, storageErr("create user", 0, err)
		}
		log.Debug().Int64("user_id", created.ID).Msg("created user")
		local = created
		result.User = created
		result.Decision = models.SyncDecisionCreate
		isNew = true
	}

	passwordReset := incoming.PasswordReset
	if e.settings.ExportEnabled {
		passwordReset = local.PasswordReset
	}

	var modifiedAt time.Time
	stamp := false
	if directoryModifiedAt != "" {
		parsed, err := ldap.ParseGeneralizedTime(directoryModifiedAt)
		if err != nil {
			result.TimestampErr = &TimestampParseError{Value: directoryModifiedAt, Err: err}
			log.Debug().Err(result.TimestampErr).Msg("unable to parse directory modify timestamp")
		} else {
			modifiedAt, stamp = parsed, true

			if parsed.Equal(local.ModifiedDate) {
				if incoming.AutoPassword {
					log.Debug().Int64("user_id", local.ID).Msg("skipping user because it is already synchronized")
					result.Decision = models.SyncDecisionSkipUnchanged
					return result, nil
				}

				screenName := incoming.ScreenName
				if screenName == "" {
					screenName = local.ScreenName
				}
				pw := e.settings.passwordPolicy().Resolve(password, screenName)
				if err := e.users.UpdatePassword(ctx, local.ID, pw, passwordReset); err != nil {
					return nil, storageErr("update password", local.ID, err)
				}
				log.Debug().Int64("user_id", local.ID).Msg("user is already synchronized, but updated password to avoid a blank value")
				result.Decision = models.SyncDecisionUpdatePasswordOnly
				return result, nil
			}
		}
	} else if !isNew {
		log.Info().Int64("user_id", local.ID).Msg("skipping user because the directory entry was never modified")
		result.Decision = models.SyncDecisionSkipNeverModified
		return result, nil
	}

	user, enrichment, err := e.fullUpdate(ctx, companyID, local, incoming, password, passwordReset, modifiedAt, stamp)
	if user != nil {
		result.User = user
	}
	result.Enrichment = enrichment
	if err != nil {
		return nil, err
	}

	log.Debug().
		Int64("user_id", user.ID).
		Stringer("decision", result.Decision).
		Bool("stamped", stamp).
		Msg("user synchronized")
	return result, nil
}

func (e *Engine) fullUpdate(ctx context.Context, companyID int64, user *models.User, incoming *models.DirectoryUser, password string, passwordReset bool, modifiedAt time.Time, stamp bool) (*models.User, *Enrichment, error) {
	screenName := incoming.ScreenName
	if screenName == "" || incoming.AutoScreenName {
		generated, err := e.screenNames.Generate(ctx, companyID, user.ID, incoming.EmailAddress)
		if err != nil {
			return nil, nil, &MappingError{DN: incoming.DN, Err: err}
		}
		screenName = generated
	}

	password = e.settings.passwordPolicy().Resolve(password, screenName)

	if incoming.UpdatePassword {
		if err := e.users.UpdatePassword(ctx, user.ID, password, passwordReset); err != nil {
			return nil, nil, storageErr("update password", user.ID, err)
		}
	}

	updated, err := e.users.UpdateFields(ctx, user.ID, userUpdate(incoming, screenName, passwordReset))
	if err != nil {
		return nil, nil, storageErr("update user", user.ID, err)
	}
	user = updated

	enrichment, err := e.enricher.Enrich(ctx, user, incoming)
	if err != nil {
		return user, enrichment, err
	}

	if user, err = e.users.UpdateStatus(ctx, user.ID, incoming.Status); err != nil {
		return nil, enrichment, storageErr("update status", updated.ID, err)
	}

	if stamp {
		if user, err = e.users.UpdateModifiedDate(ctx, user.ID, modifiedAt); err != nil {
			return nil, enrichment, storageErr("update modified date", updated.ID, err)
		}
	}

	if incoming.UpdatePortrait {
		if len(incoming.PortraitBytes) > 0 {
			err = e.users.UpdatePortrait(ctx, user.ID, incoming.PortraitBytes)
		} else {
			err = e.users.DeletePortrait(ctx, user.ID)
		}
		if err != nil {
			return user, enrichment, storageErr("update portrait", user.ID, err)
		}
	}

	return user, enrichment, nil
}

func (e *Engine) newUser(companyID int64, incoming *models.DirectoryUser, password string) *repository.NewUser {
	return &repository.NewUser{
		CompanyID:       companyID,
		AutoPassword:    incoming.AutoPassword,
		Password:        password,
		AutoScreenName:  incoming.AutoScreenName || incoming.ScreenName == "",
		ScreenName:      incoming.ScreenName,
		EmailAddress:    incoming.EmailAddress,
		FacebookID:      incoming.FacebookID,
		OpenID:          incoming.OpenID,
		LanguageID:      incoming.LanguageID,
		FirstName:       incoming.FirstName,
		MiddleName:      incoming.MiddleName,
		LastName:        incoming.LastName,
		JobTitle:        incoming.Contact.JobTitle,
		Status:          incoming.Status,
		Contact:         incoming.Contact,
		GroupIDs:        incoming.GroupIDs,
		OrganizationIDs: incoming.OrganizationIDs,
		RoleIDs:         incoming.RoleIDs,
		UserGroupIDs:    incoming.UserGroupIDs,
	}
}

// userUpdate flattens incoming into a single field update. A missing
// birthday becomes the epoch date.
func userUpdate(incoming *models.DirectoryUser, screenName string, passwordReset bool) *models.UserUpdate {
	birthday := time.Unix(0, 0).UTC()
	if incoming.Contact.Birthday != nil {
		birthday = incoming.Contact.Birthday.UTC()
	}
	c := incoming.Contact

	return &models.UserUpdate{
		ScreenName:            screenName,
		EmailAddress:          incoming.EmailAddress,
		PasswordReset:         passwordReset,
		ReminderQueryQuestion: incoming.ReminderQueryQuestion,
		ReminderQueryAnswer:   incoming.ReminderQueryAnswer,
		FacebookID:            incoming.FacebookID,
		OpenID:                incoming.OpenID,
		LanguageID:            incoming.LanguageID,
		TimeZoneID:            incoming.TimeZoneID,
		Greeting:              incoming.Greeting,
		Comments:              incoming.Comments,
		FirstName:             incoming.FirstName,
		MiddleName:            incoming.MiddleName,
		LastName:              incoming.LastName,
		PrefixID:              c.PrefixID,
		SuffixID:              c.SuffixID,
		Male:                  c.Male,
		BirthdayMonth:         birthday.Month(),
		BirthdayDay:           birthday.Day(),
		BirthdayYear:          birthday.Year(),
		SmsSn:                 c.SmsSn,
		AimSn:                 c.AimSn,
		FacebookSn:            c.FacebookSn,
		IcqSn:                 c.IcqSn,
		JabberSn:              c.JabberSn,
		MsnSn:                 c.MsnSn,
		MySpaceSn:             c.MySpaceSn,
		SkypeSn:               c.SkypeSn,
		TwitterSn:             c.TwitterSn,
		YmSn:                  c.YmSn,
		JobTitle:              c.JobTitle,
		GroupIDs:              incoming.GroupIDs,
		OrganizationIDs:       incoming.OrganizationIDs,
		RoleIDs:               incoming.RoleIDs,
		UserGroupIDs:          incoming.UserGroupIDs,
	}
}
