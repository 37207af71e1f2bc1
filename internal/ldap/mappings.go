package ldap

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Portal user fields.
const (
	UserScreenName   = "screenName"
	UserEmailAddress = "emailAddress"
	UserPassword     = "password"
	UserFirstName    = "firstName"
	UserMiddleName   = "middleName"
	UserLastName     = "lastName"
	UserJobTitle     = "jobTitle"
	UserStatus       = "status"
	UserPortrait     = "portrait"
	UserModifiedDate = "modifiedDate"
	UserLanguageID   = "languageId"
	UserTimeZoneID   = "timeZoneId"
	UserGreeting     = "greeting"
	UserComments     = "comments"
	UserOpenID       = "openId"
)

// Portal contact fields.
const (
	ContactBirthday   = "birthday"
	ContactMale       = "male"
	ContactPrefix     = "prefix"
	ContactSuffix     = "suffix"
	ContactSmsSn      = "smsSn"
	ContactAimSn      = "aimSn"
	ContactFacebookSn = "facebookSn"
	ContactIcqSn      = "icqSn"
	ContactJabberSn   = "jabberSn"
	ContactMsnSn      = "msnSn"
	ContactMySpaceSn  = "mySpaceSn"
	ContactSkypeSn    = "skypeSn"
	ContactTwitterSn  = "twitterSn"
	ContactYmSn       = "ymSn"
	ContactJobTitle   = "jobTitle"
	ContactPhone      = "phone"
	ContactStreet     = "street"
	ContactCity       = "city"
	ContactZip        = "zip"
)

// Portal group fields.
const (
	GroupName        = "groupName"
	GroupDescription = "description"
	GroupUser        = "user"
)

// Mappings are flat tables from portal field to directory attribute name.
// Expando tables map custom attribute name to directory attribute name.
type Mappings struct {
	User           map[string]string `yaml:"user" mapstructure:"user"`
	Contact        map[string]string `yaml:"contact" mapstructure:"contact"`
	Group          map[string]string `yaml:"group" mapstructure:"group"`
	UserExpando    map[string]string `yaml:"user_expando" mapstructure:"user_expando"`
	ContactExpando map[string]string `yaml:"contact_expando" mapstructure:"contact_expando"`
}

// DefaultMappings returns an inetOrgPerson mapping.
func DefaultMappings() Mappings {
	return Mappings{
		User: map[string]string{
			UserScreenName:   "uid",
			UserEmailAddress: "mail",
			UserPassword:     "userPassword",
			UserFirstName:    "givenName",
			UserLastName:     "sn",
			UserJobTitle:     "title",
			UserPortrait:     "jpegPhoto",
			UserModifiedDate: "modifyTimestamp",
			UserLanguageID:   "preferredLanguage",
		},
		Contact: map[string]string{
			ContactPhone:  "telephoneNumber",
			ContactStreet: "street",
			ContactCity:   "l",
			ContactZip:    "postalCode",
		},
		Group: map[string]string{
			GroupName:        "cn",
			GroupDescription: "description",
			GroupUser:        "member",
		},
	}
}

// LoadMappings reads mapping tables from a YAML file. Tables missing from the
// file keep their defaults.
func LoadMappings(path string) (Mappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mappings{}, fmt.Errorf("read mappings: %w", err)
	}
	m := DefaultMappings()
	var loaded Mappings
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return Mappings{}, fmt.Errorf("parse mappings %s: %w", path, err)
	}
	m.Merge(loaded)
	return m, nil
}

// Merge replaces every non-empty table of m with the one from other.
func (m *Mappings) Merge(other Mappings) {
	if len(other.User) > 0 {
		m.User = other.User
	}
	if len(other.Contact) > 0 {
		m.Contact = other.Contact
	}
	if len(other.Group) > 0 {
		m.Group = other.Group
	}
	if len(other.UserExpando) > 0 {
		m.UserExpando = other.UserExpando
	}
	if len(other.ContactExpando) > 0 {
		m.ContactExpando = other.ContactExpando
	}
}

var (
	userFields = []string{
		UserScreenName, UserEmailAddress, UserPassword, UserFirstName, UserMiddleName,
		UserLastName, UserJobTitle, UserStatus, UserPortrait, UserModifiedDate,
		UserLanguageID, UserTimeZoneID, UserGreeting, UserComments, UserOpenID,
	}
	contactFields = []string{
		ContactBirthday, ContactMale, ContactPrefix, ContactSuffix, ContactSmsSn,
		ContactAimSn, ContactFacebookSn, ContactIcqSn, ContactJabberSn, ContactMsnSn,
		ContactMySpaceSn, ContactSkypeSn, ContactTwitterSn, ContactYmSn, ContactJobTitle,
		ContactPhone, ContactStreet, ContactCity, ContactZip,
	}
	groupFields = []string{GroupName, GroupDescription, GroupUser}
)

// Canonicalize restores field name casing in the user, contact and group
// tables. Config loaders that fold keys to lower case need this.
func (m *Mappings) Canonicalize() {
	m.User = canonicalize(m.User, userFields)
	m.Contact = canonicalize(m.Contact, contactFields)
	m.Group = canonicalize(m.Group, groupFields)
}

func canonicalize(table map[string]string, fields []string) map[string]string {
	if table == nil {
		return nil
	}
	out := make(map[string]string, len(table))
	for key, attr := range table {
		for _, f := range fields {
			if strings.EqualFold(key, f) {
				key = f
				break
			}
		}
		out[key] = attr
	}
	return out
}

// UserAttributeNames lists every directory attribute a user search must return.
func (m Mappings) UserAttributeNames() []string {
	return attributeNames(m.User, m.Contact, m.UserExpando, m.ContactExpando)
}

// GroupAttributeNames lists every directory attribute a group search must return.
func (m Mappings) GroupAttributeNames() []string {
	return attributeNames(m.Group)
}

func attributeNames(tables ...map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, table := range tables {
		for _, attr := range table {
			if attr != "" && !seen[attr] {
				seen[attr] = true
				out = append(out, attr)
			}
		}
	}
	sort.Strings(out)
	return out
}
