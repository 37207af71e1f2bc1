package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User workflow statuses.
const (
	StatusApproved = 0
	StatusInactive = 5
)

// User is a portal user owned by the local user store.
type User struct {
	ID            int64     `json:"id" db:"id"`
	CompanyID     int64     `json:"company_id" db:"company_id"`
	ContactID     int64     `json:"contact_id" db:"contact_id"`
	DefaultUser   bool      `json:"default_user" db:"default_user"`
	ScreenName    string    `json:"screen_name" db:"screen_name"`
	EmailAddress  string    `json:"email_address" db:"email_address"`
	Password      string    `json:"-" db:"password"` // Never expose in JSON
	PasswordReset bool      `json:"password_reset" db:"password_reset"`
	FacebookID    int64     `json:"facebook_id" db:"facebook_id"`
	OpenID        string    `json:"open_id" db:"open_id"`
	LanguageID    string    `json:"language_id" db:"language_id"`
	TimeZoneID    string    `json:"time_zone_id" db:"time_zone_id"`
	Greeting      string    `json:"greeting" db:"greeting"`
	Comments      string    `json:"comments" db:"comments"`
	FirstName     string    `json:"first_name" db:"first_name"`
	MiddleName    string    `json:"middle_name" db:"middle_name"`
	LastName      string    `json:"last_name" db:"last_name"`
	JobTitle      string    `json:"job_title" db:"job_title"`
	Status        int       `json:"status" db:"status"`
	PortraitID    int64     `json:"portrait_id" db:"portrait_id"`
	CreateDate    time.Time `json:"create_date" db:"create_date"`
	ModifiedDate  time.Time `json:"modified_date" db:"modified_date"`

	Contact   Contact   `json:"contact" db:"-"`
	Phones    []Phone   `json:"phones,omitempty" db:"-"`
	Addresses []Address `json:"addresses,omitempty" db:"-"`

	GroupIDs        []int64 `json:"group_ids,omitempty" db:"-"`
	OrganizationIDs []int64 `json:"organization_ids,omitempty" db:"-"`
	RoleIDs         []int64 `json:"role_ids,omitempty" db:"-"`
	UserGroupIDs    []int64 `json:"user_group_ids,omitempty" db:"-"`
}

// UserUpdate carries every mapped field written by a full directory update.
// The password is only changed through UpdatePassword.
type UserUpdate struct {
	ScreenName            string
	EmailAddress          string
	PasswordReset         bool
	ReminderQueryQuestion string
	ReminderQueryAnswer   string
	FacebookID            int64
	OpenID                string
	LanguageID            string
	TimeZoneID            string
	Greeting              string
	Comments              string
	FirstName             string
	MiddleName            string
	LastName              string
	PrefixID              int64
	SuffixID              int64
	Male                  bool
	BirthdayMonth         time.Month
	BirthdayDay           int
	BirthdayYear          int
	SmsSn                 string
	AimSn                 string
	FacebookSn            string
	IcqSn                 string
	JabberSn              string
	MsnSn                 string
	MySpaceSn             string
	SkypeSn               string
	TwitterSn             string
	YmSn                  string
	JobTitle              string
	GroupIDs              []int64
	OrganizationIDs       []int64
	RoleIDs               []int64
	UserGroupIDs          []int64
}

// Birthday rebuilds the calendar date from the split fields.
func (u *UserUpdate) Birthday() time.Time {
	return time.Date(u.BirthdayYear, u.BirthdayMonth, u.BirthdayDay, 0, 0, 0, 0, time.UTC)
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// HasPhoneType reports whether the user already owns a phone of typeID.
func (u *User) HasPhoneType(typeID int64) bool {
	for _, phone := range u.Phones {
		if phone.TypeID == typeID {
			return true
		}
	}
	return false
}

// HasAddressType reports whether the user already owns an address of typeID.
func (u *User) HasAddressType(typeID int64) bool {
	for _, address := range u.Addresses {
		if address.TypeID == typeID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, so stores can hand out snapshots.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Contact = u.Contact.clone()
	c.Phones = append([]Phone(nil), u.Phones...)
	c.Addresses = append([]Address(nil), u.Addresses...)
	c.GroupIDs = append([]int64(nil), u.GroupIDs...)
	c.OrganizationIDs = append([]int64(nil), u.OrganizationIDs...)
	c.RoleIDs = append([]int64(nil), u.RoleIDs...)
	c.UserGroupIDs = append([]int64(nil), u.UserGroupIDs...)
	return &c
}

// Apply copies an update onto the user. Stores use it so that every backend
// interprets UserUpdate the same way.
func (u *User) Apply(upd *UserUpdate) {
	u.ScreenName = upd.ScreenName
	u.EmailAddress = upd.EmailAddress
	u.PasswordReset = upd.PasswordReset
	u.FacebookID = upd.FacebookID
	u.OpenID = upd.OpenID
	u.LanguageID = upd.LanguageID
	u.TimeZoneID = upd.TimeZoneID
	u.Greeting = upd.Greeting
	u.Comments = upd.Comments
	u.FirstName = upd.FirstName
	u.MiddleName = upd.MiddleName
	u.LastName = upd.LastName
	u.JobTitle = upd.JobTitle

	birthday := upd.Birthday()
	u.Contact = Contact{
		Male:       upd.Male,
		Birthday:   &birthday,
		PrefixID:   upd.PrefixID,
		SuffixID:   upd.SuffixID,
		SmsSn:      upd.SmsSn,
		AimSn:      upd.AimSn,
		FacebookSn: upd.FacebookSn,
		IcqSn:      upd.IcqSn,
		JabberSn:   upd.JabberSn,
		MsnSn:      upd.MsnSn,
		MySpaceSn:  upd.MySpaceSn,
		SkypeSn:    upd.SkypeSn,
		TwitterSn:  upd.TwitterSn,
		YmSn:       upd.YmSn,
		JobTitle:   upd.JobTitle,
	}

	u.GroupIDs = append([]int64(nil), upd.GroupIDs...)
	u.OrganizationIDs = append([]int64(nil), upd.OrganizationIDs...)
	u.RoleIDs = append([]int64(nil), upd.RoleIDs...)
	u.UserGroupIDs = append([]int64(nil), upd.UserGroupIDs...)
}
