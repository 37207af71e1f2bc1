package models

// SocialActivity is a historical activity row. CreateDate is epoch
// milliseconds and must be unique within (ClassNameID, ClassPK).
type SocialActivity struct {
	ID             int64  `json:"id" yaml:"id" db:"id"`
	GroupID        int64  `json:"group_id" yaml:"groupId" db:"group_id"`
	CompanyID      int64  `json:"company_id" yaml:"companyId" db:"company_id"`
	UserID         int64  `json:"user_id" yaml:"userId" db:"user_id"`
	CreateDate     int64  `json:"create_date" yaml:"createDate" db:"create_date"`
	ClassNameID    int64  `json:"class_name_id" yaml:"classNameId" db:"class_name_id"`
	ClassPK        int64  `json:"class_pk" yaml:"classPK" db:"class_pk"`
	Type           int    `json:"type" yaml:"type" db:"type"`
	ExtraData      string `json:"extra_data" yaml:"extraData" db:"extra_data"`
	ReceiverUserID int64  `json:"receiver_user_id" yaml:"receiverUserId" db:"receiver_user_id"`
}
