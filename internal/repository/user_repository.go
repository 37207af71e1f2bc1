package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// Expando owner class names.
const (
	ExpandoClassUser    = "User"
	ExpandoClassContact = "Contact"
)

// Membership kinds stored in user_memberships.
const (
	membershipGroup        = "group"
	membershipOrganization = "organization"
	membershipRole         = "role"
	membershipUserGroup    = "user_group"
)

const userColumns = `id, company_id, contact_id, default_user, COALESCE(screen_name, '') AS screen_name,
	email_address, password, password_reset, facebook_id, open_id, language_id, time_zone_id,
	greeting, comments, first_name, middle_name, last_name, job_title, status, portrait_id,
	create_date, modified_date`

const contactColumns = `male, birthday, prefix_id, suffix_id, sms_sn, aim_sn, facebook_sn, icq_sn,
	jabber_sn, msn_sn, myspace_sn, skype_sn, twitter_sn, ym_sn, job_title`

// UserRepository handles database operations for users
type UserRepository struct {
	qb        *database.QueryBuilder
	now       func() time.Time
	listeners listeners
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB, opts ...ChangeListener) *UserRepository {
	return &UserRepository{
		qb:        database.NewQueryBuilder(db),
		now:       time.Now,
		listeners: opts,
	}
}

// FindUser looks a user up by screen name, then by email address.
func (r *UserRepository) FindUser(ctx context.Context, companyID int64, screenName, emailAddress string) (*models.User, error) {
	if screenName != "" {
		user, err := r.getBy(ctx, "company_id = ? AND screen_name = ?", companyID, screenName)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
	}
	if emailAddress != "" {
		return r.getBy(ctx, "company_id = ? AND email_address = ?", companyID, emailAddress)
	}
	return nil, ErrUserNotFound
}

// GetByID retrieves a user with contact details, phones and addresses.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	return r.getBy(ctx, "id = ?", userID)
}

// DefaultUserID returns the id of the company's default user.
func (r *UserRepository) DefaultUserID(ctx context.Context, companyID int64) (int64, error) {
	var id int64
	err := r.qb.GetContext(ctx, &id, `SELECT id FROM users WHERE company_id = ? AND default_user = ?`, companyID, true)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("default user for company %d: %w", companyID, ErrUserNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get default user: %w", err)
	}
	return id, nil
}

// CreateUser inserts a user together with its contact row and memberships.
func (r *UserRepository) CreateUser(ctx context.Context, newUser *NewUser) (*models.User, error) {
	if newUser.EmailAddress == "" {
		return nil, fmt.Errorf("email address is required")
	}

	password := ""
	if !newUser.AutoPassword && newUser.Password != "" {
		var hashed models.User
		if err := hashed.SetPassword(newUser.Password); err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		password = hashed.Password
	}

	now := r.now()
	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO users (company_id, contact_id, default_user, screen_name, email_address, password,
			password_reset, facebook_id, open_id, language_id, time_zone_id, greeting, comments,
			first_name, middle_name, last_name, job_title, status, portrait_id, create_date, modified_date)
		VALUES (?, 0, ?, ?, ?, ?, ?, ?, ?, ?, '', '', '', ?, ?, ?, ?, ?, 0, ?, ?)`,
		newUser.CompanyID, false, nullIfEmpty(newUser.ScreenName), newUser.EmailAddress, password,
		false, newUser.FacebookID, newUser.OpenID, newUser.LanguageID,
		newUser.FirstName, newUser.MiddleName, newUser.LastName, newUser.JobTitle, newUser.Status, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if _, err := r.qb.ExecContext(ctx, `UPDATE users SET contact_id = ? WHERE id = ?`, id, id); err != nil {
		return nil, fmt.Errorf("failed to link contact: %w", err)
	}

	c := newUser.Contact
	if _, err := r.qb.ExecContext(ctx, `
		INSERT INTO contacts (contact_id, user_id, `+contactColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, id, c.Male, c.Birthday, c.PrefixID, c.SuffixID, c.SmsSn, c.AimSn, c.FacebookSn, c.IcqSn,
		c.JabberSn, c.MsnSn, c.MySpaceSn, c.SkypeSn, c.TwitterSn, c.YmSn, c.JobTitle); err != nil {
		return nil, fmt.Errorf("failed to insert contact: %w", err)
	}

	if err := r.replaceMemberships(ctx, id, newUser.GroupIDs, newUser.OrganizationIDs, newUser.RoleIDs, newUser.UserGroupIDs); err != nil {
		return nil, err
	}

	r.listeners.notify(ctx, "user", "create", id)
	return r.GetByID(ctx, id)
}

// UpdatePassword hashes and stores a new password. The modification date is
// left alone.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, password string, passwordReset bool) error {
	var hashed models.User
	if err := hashed.SetPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	res, err := r.qb.ExecContext(ctx, `UPDATE users SET password = ?, password_reset = ? WHERE id = ?`,
		hashed.Password, passwordReset, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	r.listeners.notify(ctx, "user", "update_password", userID)
	return nil
}

// UpdateFields writes every mapped field, the contact row and memberships.
func (r *UserRepository) UpdateFields(ctx context.Context, userID int64, u *models.UserUpdate) (*models.User, error) {
	res, err := r.qb.ExecContext(ctx, `
		UPDATE users SET screen_name = ?, email_address = ?, password_reset = ?,
			reminder_query_question = ?, reminder_query_answer = ?, facebook_id = ?, open_id = ?,
			language_id = ?, time_zone_id = ?, greeting = ?, comments = ?, first_name = ?,
			middle_name = ?, last_name = ?, job_title = ?, modified_date = ?
		WHERE id = ?`,
		nullIfEmpty(u.ScreenName), u.EmailAddress, u.PasswordReset,
		u.ReminderQueryQuestion, u.ReminderQueryAnswer, u.FacebookID, u.OpenID,
		u.LanguageID, u.TimeZoneID, u.Greeting, u.Comments, u.FirstName,
		u.MiddleName, u.LastName, u.JobTitle, r.now(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}

	birthday := u.Birthday()
	if _, err := r.qb.ExecContext(ctx, `
		UPDATE contacts SET male = ?, birthday = ?, prefix_id = ?, suffix_id = ?, sms_sn = ?, aim_sn = ?,
			facebook_sn = ?, icq_sn = ?, jabber_sn = ?, msn_sn = ?, myspace_sn = ?, skype_sn = ?,
			twitter_sn = ?, ym_sn = ?, job_title = ?
		WHERE user_id = ?`,
		u.Male, birthday, u.PrefixID, u.SuffixID, u.SmsSn, u.AimSn,
		u.FacebookSn, u.IcqSn, u.JabberSn, u.MsnSn, u.MySpaceSn, u.SkypeSn,
		u.TwitterSn, u.YmSn, u.JobTitle, userID); err != nil {
		return nil, fmt.Errorf("failed to update contact: %w", err)
	}

	if err := r.replaceMemberships(ctx, userID, u.GroupIDs, u.OrganizationIDs, u.RoleIDs, u.UserGroupIDs); err != nil {
		return nil, err
	}

	r.listeners.notify(ctx, "user", "update", userID)
	return r.GetByID(ctx, userID)
}

// UpdateStatus changes the workflow status
func (r *UserRepository) UpdateStatus(ctx context.Context, userID int64, status int) (*models.User, error) {
	return r.updateColumn(ctx, userID, "update_status", `UPDATE users SET status = ? WHERE id = ?`, status)
}

// UpdateModifiedDate stamps the modification timestamp
func (r *UserRepository) UpdateModifiedDate(ctx context.Context, userID int64, modifiedDate time.Time) (*models.User, error) {
	return r.updateColumn(ctx, userID, "update_modified_date", `UPDATE users SET modified_date = ? WHERE id = ?`, modifiedDate)
}

// UpdatePortrait stores portrait bytes
func (r *UserRepository) UpdatePortrait(ctx context.Context, userID int64, portrait []byte) error {
	if _, err := r.qb.ExecContext(ctx, `DELETE FROM user_portraits WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to replace portrait: %w", err)
	}
	if _, err := r.qb.ExecContext(ctx, `INSERT INTO user_portraits (user_id, data) VALUES (?, ?)`, userID, portrait); err != nil {
		return fmt.Errorf("failed to store portrait: %w", err)
	}
	_, err := r.updateColumn(ctx, userID, "update_portrait", `UPDATE users SET portrait_id = ? WHERE id = ?`, userID)
	return err
}

// DeletePortrait removes the portrait
func (r *UserRepository) DeletePortrait(ctx context.Context, userID int64) error {
	if _, err := r.qb.ExecContext(ctx, `DELETE FROM user_portraits WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete portrait: %w", err)
	}
	_, err := r.updateColumn(ctx, userID, "delete_portrait", `UPDATE users SET portrait_id = 0 WHERE id = ?`)
	return err
}

// AddPhone inserts a phone
func (r *UserRepository) AddPhone(ctx context.Context, phone *models.Phone) (*models.Phone, error) {
	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO phones (user_id, class_name, class_pk, number, extension, type_id, is_primary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		phone.UserID, phone.ClassName, phone.ClassPK, phone.Number, phone.Extension, phone.TypeID, phone.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to insert phone: %w", err)
	}
	stored := *phone
	stored.ID = id
	r.listeners.notify(ctx, "phone", "create", id)
	return &stored, nil
}

// AddAddress inserts an address
func (r *UserRepository) AddAddress(ctx context.Context, address *models.Address) (*models.Address, error) {
	id, err := r.qb.InsertReturningID(ctx, `
		INSERT INTO addresses (user_id, class_name, class_pk, street1, street2, street3, city, zip,
			region_id, country_id, type_id, mailing, is_primary)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		address.UserID, address.ClassName, address.ClassPK, address.Street1, address.Street2, address.Street3,
		address.City, address.Zip, address.RegionID, address.CountryID, address.TypeID, address.Mailing, address.Primary)
	if err != nil {
		return nil, fmt.Errorf("failed to insert address: %w", err)
	}
	stored := *address
	stored.ID = id
	r.listeners.notify(ctx, "address", "create", id)
	return &stored, nil
}

// UpdateExpando upserts user and contact custom attributes.
func (r *UserRepository) UpdateExpando(ctx context.Context, userID int64, userAttrs, contactAttrs map[string]string) error {
	upsert := `INSERT INTO expando_values (class_name, class_pk, name, value) VALUES (?, ?, ?, ?)
		ON CONFLICT (class_name, class_pk, name) DO UPDATE SET value = excluded.value`
	if r.qb.IsMySQL() {
		upsert = `INSERT INTO expando_values (class_name, class_pk, name, value) VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}

	write := func(className string, attrs map[string]string) error {
		for name, value := range attrs {
			if _, err := r.qb.ExecContext(ctx, upsert, className, userID, name, value); err != nil {
				return fmt.Errorf("failed to store %s expando %q: %w", className, name, err)
			}
		}
		return nil
	}
	if err := write(ExpandoClassUser, userAttrs); err != nil {
		return err
	}
	if err := write(ExpandoClassContact, contactAttrs); err != nil {
		return err
	}
	r.listeners.notify(ctx, "user", "update_expando", userID)
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, where string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := r.qb.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+where, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := r.loadDetails(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) loadDetails(ctx context.Context, user *models.User) error {
	err := r.qb.GetContext(ctx, &user.Contact, `SELECT `+contactColumns+` FROM contacts WHERE user_id = ?`, user.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to get contact: %w", err)
	}

	if err := r.qb.SelectContext(ctx, &user.Phones, `
		SELECT id, user_id, class_name, class_pk, number, extension, type_id, is_primary
		FROM phones WHERE user_id = ? ORDER BY id`, user.ID); err != nil {
		return fmt.Errorf("failed to list phones: %w", err)
	}

	if err := r.qb.SelectContext(ctx, &user.Addresses, `
		SELECT id, user_id, class_name, class_pk, street1, street2, street3, city, zip,
			region_id, country_id, type_id, mailing, is_primary
		FROM addresses WHERE user_id = ? ORDER BY id`, user.ID); err != nil {
		return fmt.Errorf("failed to list addresses: %w", err)
	}

	var memberships []struct {
		Kind     string `db:"kind"`
		TargetID int64  `db:"target_id"`
	}
	if err := r.qb.SelectContext(ctx, &memberships, `
		SELECT kind, target_id FROM user_memberships WHERE user_id = ? ORDER BY kind, target_id`, user.ID); err != nil {
		return fmt.Errorf("failed to list memberships: %w", err)
	}
	for _, m := range memberships {
		switch m.Kind {
		case membershipGroup:
			user.GroupIDs = append(user.GroupIDs, m.TargetID)
		case membershipOrganization:
			user.OrganizationIDs = append(user.OrganizationIDs, m.TargetID)
		case membershipRole:
			user.RoleIDs = append(user.RoleIDs, m.TargetID)
		case membershipUserGroup:
			user.UserGroupIDs = append(user.UserGroupIDs, m.TargetID)
		}
	}
	return nil
}

func (r *UserRepository) replaceMemberships(ctx context.Context, userID int64, groups, orgs, roles, userGroups []int64) error {
	if _, err := r.qb.ExecContext(ctx, `DELETE FROM user_memberships WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear memberships: %w", err)
	}
	sets := []struct {
		kind string
		ids  []int64
	}{
		{membershipGroup, groups},
		{membershipOrganization, orgs},
		{membershipRole, roles},
		{membershipUserGroup, userGroups},
	}
	for _, set := range sets {
		for _, id := range set.ids {
			if _, err := r.qb.ExecContext(ctx, `INSERT INTO user_memberships (user_id, kind, target_id) VALUES (?, ?, ?)`,
				userID, set.kind, id); err != nil {
				return fmt.Errorf("failed to add %s membership %d: %w", set.kind, id, err)
			}
		}
	}
	return nil
}

func (r *UserRepository) updateColumn(ctx context.Context, userID int64, op, query string, args ...interface{}) (*models.User, error) {
	res, err := r.qb.ExecContext(ctx, query, append(args, userID)...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	r.listeners.notify(ctx, "user", op, userID)
	return r.GetByID(ctx, userID)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
