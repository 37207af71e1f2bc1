package models

import "time"

// Contact type identifiers for auto-populated business entries.
const (
	PhoneTypeBusiness   int64 = 11006
	AddressTypeBusiness int64 = 11000
)

// ClassNameContact is the owner class name recorded on phones and addresses.
const ClassNameContact = "Contact"

// Contact holds the personal details attached to a user.
type Contact struct {
	Male       bool       `json:"male" db:"male"`
	Birthday   *time.Time `json:"birthday,omitempty" db:"birthday"`
	PrefixID   int64      `json:"prefix_id" db:"prefix_id"`
	SuffixID   int64      `json:"suffix_id" db:"suffix_id"`
	SmsSn      string     `json:"sms_sn" db:"sms_sn"`
	AimSn      string     `json:"aim_sn" db:"aim_sn"`
	FacebookSn string     `json:"facebook_sn" db:"facebook_sn"`
	IcqSn      string     `json:"icq_sn" db:"icq_sn"`
	JabberSn   string     `json:"jabber_sn" db:"jabber_sn"`
	MsnSn      string     `json:"msn_sn" db:"msn_sn"`
	MySpaceSn  string     `json:"myspace_sn" db:"myspace_sn"`
	SkypeSn    string     `json:"skype_sn" db:"skype_sn"`
	TwitterSn  string     `json:"twitter_sn" db:"twitter_sn"`
	YmSn       string     `json:"ym_sn" db:"ym_sn"`
	JobTitle   string     `json:"job_title" db:"job_title"`
}

func (c Contact) clone() Contact {
	if c.Birthday != nil {
		b := *c.Birthday
		c.Birthday = &b
	}
	return c
}

// Phone is a phone number owned by a contact.
type Phone struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"user_id" db:"user_id"`
	ClassName string `json:"class_name" db:"class_name"`
	ClassPK   int64  `json:"class_pk" db:"class_pk"`
	Number    string `json:"number" db:"number"`
	Extension string `json:"extension" db:"extension"`
	TypeID    int64  `json:"type_id" db:"type_id"`
	Primary   bool   `json:"primary" db:"is_primary"`
}

// Address is a postal address owned by a contact.
type Address struct {
	ID        int64  `json:"id" db:"id"`
	UserID    int64  `json:"user_id" db:"user_id"`
	ClassName string `json:"class_name" db:"class_name"`
	ClassPK   int64  `json:"class_pk" db:"class_pk"`
	Street1   string `json:"street1" db:"street1"`
	Street2   string `json:"street2" db:"street2"`
	Street3   string `json:"street3" db:"street3"`
	City      string `json:"city" db:"city"`
	Zip       string `json:"zip" db:"zip"`
	RegionID  int64  `json:"region_id" db:"region_id"`
	CountryID int64  `json:"country_id" db:"country_id"`
	TypeID    int64  `json:"type_id" db:"type_id"`
	Mailing   bool   `json:"mailing" db:"mailing"`
	Primary   bool   `json:"primary" db:"is_primary"`
}
