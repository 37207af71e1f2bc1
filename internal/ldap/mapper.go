package ldap

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// AttributeError reports a required field that could not be mapped.
type AttributeError struct {
	Field     string
	Attribute string
	DN        string
}

func (e *AttributeError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("%s: no attribute mapped for required field %s", e.DN, e.Field)
	}
	return fmt.Sprintf("%s: required field %s (attribute %s) is empty", e.DN, e.Field, e.Attribute)
}

// Mapper converts directory attributes into portal records.
type Mapper interface {
	MapUser(companyID int64, attrs *Attributes, mappings Mappings, password string) (*models.DirectoryUser, error)
	MapGroup(companyID int64, attrs *Attributes, mappings Mappings) (*models.DirectoryGroup, error)
}

// TableMapper maps attributes through the flat Mappings tables.
type TableMapper struct {
	// AlwaysAutoGenerateScreenName ignores the mapped screen name.
	AlwaysAutoGenerateScreenName bool
}

// MapUser builds a DirectoryUser. An empty password means the local password
// is left to the store (auto password).
func (m TableMapper) MapUser(companyID int64, attrs *Attributes, mappings Mappings, password string) (*models.DirectoryUser, error) {
	um := mappings.User
	cm := mappings.Contact

	email := strings.TrimSpace(attrs.Get(um[UserEmailAddress]))
	if email == "" {
		return nil, &AttributeError{Field: UserEmailAddress, Attribute: um[UserEmailAddress], DN: attrs.DN}
	}

	screenName := strings.ToLower(strings.TrimSpace(attrs.Get(um[UserScreenName])))
	if m.AlwaysAutoGenerateScreenName {
		screenName = ""
	}

	user := &models.DirectoryUser{
		DN:             attrs.DN,
		ScreenName:     screenName,
		EmailAddress:   email,
		FirstName:      attrs.Get(um[UserFirstName]),
		MiddleName:     attrs.Get(um[UserMiddleName]),
		LastName:       attrs.Get(um[UserLastName]),
		OpenID:         attrs.Get(um[UserOpenID]),
		LanguageID:     attrs.Get(um[UserLanguageID]),
		TimeZoneID:     attrs.Get(um[UserTimeZoneID]),
		Greeting:       attrs.Get(um[UserGreeting]),
		Comments:       attrs.Get(um[UserComments]),
		Status:         parseStatus(attrs.Get(um[UserStatus])),
		Phone:          attrs.Get(cm[ContactPhone]),
		Street:         attrs.Get(cm[ContactStreet]),
		City:           attrs.Get(cm[ContactCity]),
		Zip:            attrs.Get(cm[ContactZip]),
		AutoPassword:   password == "",
		AutoScreenName: screenName == "",
		UpdatePassword: password != "",
		UpdatePortrait: um[UserPortrait] != "",
		PortraitBytes:  attrs.GetBytes(um[UserPortrait]),
	}

	jobTitle := attrs.Get(um[UserJobTitle])
	if jobTitle == "" {
		jobTitle = attrs.Get(cm[ContactJobTitle])
	}

	user.Contact = models.Contact{
		Male:       parseBool(attrs.Get(cm[ContactMale])),
		Birthday:   parseBirthday(attrs.Get(cm[ContactBirthday])),
		PrefixID:   parseInt(attrs.Get(cm[ContactPrefix])),
		SuffixID:   parseInt(attrs.Get(cm[ContactSuffix])),
		SmsSn:      attrs.Get(cm[ContactSmsSn]),
		AimSn:      attrs.Get(cm[ContactAimSn]),
		FacebookSn: attrs.Get(cm[ContactFacebookSn]),
		IcqSn:      attrs.Get(cm[ContactIcqSn]),
		JabberSn:   attrs.Get(cm[ContactJabberSn]),
		MsnSn:      attrs.Get(cm[ContactMsnSn]),
		MySpaceSn:  attrs.Get(cm[ContactMySpaceSn]),
		SkypeSn:    attrs.Get(cm[ContactSkypeSn]),
		TwitterSn:  attrs.Get(cm[ContactTwitterSn]),
		YmSn:       attrs.Get(cm[ContactYmSn]),
		JobTitle:   jobTitle,
	}

	user.Expando = expandoValues(attrs, mappings.UserExpando)
	user.ContactExpando = expandoValues(attrs, mappings.ContactExpando)
	return user, nil
}

// MapGroup builds a DirectoryGroup.
func (m TableMapper) MapGroup(companyID int64, attrs *Attributes, mappings Mappings) (*models.DirectoryGroup, error) {
	gm := mappings.Group

	name := strings.TrimSpace(attrs.Get(gm[GroupName]))
	if name == "" {
		return nil, &AttributeError{Field: GroupName, Attribute: gm[GroupName], DN: attrs.DN}
	}

	return &models.DirectoryGroup{
		DN:          attrs.DN,
		Name:        name,
		Description: attrs.Get(gm[GroupDescription]),
		Members:     attrs.GetAll(gm[GroupUser]),
	}, nil
}

func expandoValues(attrs *Attributes, table map[string]string) map[string]string {
	if len(table) == 0 {
		return nil
	}
	out := make(map[string]string, len(table))
	for name, attr := range table {
		if v := attrs.Get(attr); v != "" {
			out[name] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseBirthday(v string) *time.Time {
	if v == "" {
		return nil
	}
	if t, err := ParseGeneralizedTime(v); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t
	}
	return nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "m", "male":
		return true
	}
	return false
}

func parseInt(v string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	return n
}

func parseStatus(v string) int {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "active", "approved", "true":
		return models.StatusApproved
	case "inactive", "disabled", "false":
		return models.StatusInactive
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return models.StatusApproved
	}
	return n
}
