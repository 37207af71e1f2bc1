package ldapsync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Enrichment lists the contact entries an Enrich call created.
type Enrichment struct {
	Phone   *models.Phone
	Address *models.Address
}

// Empty reports whether nothing was added.
func (e *Enrichment) Empty() bool {
	return e == nil || (e.Phone == nil && e.Address == nil)
}

// Enricher adds a business phone and a business address taken from the
// directory when the user has none of that type.
type Enricher struct {
	users  repository.UserStore
	logger *zerolog.Logger
}

// NewEnricher creates an enricher writing through users.
func NewEnricher(users repository.UserStore, opts ...Option) *Enricher {
	o := buildOptions(opts)
	return &Enricher{users: users, logger: o.Logger}
}

// Enrich never touches existing business entries. Created entries are also
// appended to user, so a repeated call on the same record adds nothing.
func (e *Enricher) Enrich(ctx context.Context, user *models.User, incoming *models.DirectoryUser) (*Enrichment, error) {
	result := &Enrichment{}

	if !user.HasPhoneType(models.PhoneTypeBusiness) && incoming.Phone != "" {
		e.logger.Debug().Int64("user_id", user.ID).Str("phone", incoming.Phone).Msg("adding business phone")

		phone, err := e.users.AddPhone(ctx, &models.Phone{
			UserID:    user.ID,
			ClassName: models.ClassNameContact,
			ClassPK:   user.ContactID,
			Number:    incoming.Phone,
			TypeID:    models.PhoneTypeBusiness,
			Primary:   true,
		})
		if err != nil {
			return result, storageErr("add business phone", user.ID, err)
		}
		user.Phones = append(user.Phones, *phone)
		result.Phone = phone
	}

	if !user.HasAddressType(models.AddressTypeBusiness) && incoming.Street != "" && incoming.City != "" {
		e.logger.Debug().Int64("user_id", user.ID).
			Str("street", incoming.Street).
			Str("city", incoming.City).
			Str("zip", incoming.Zip).
			Msg("adding business address")

		address, err := e.users.AddAddress(ctx, &models.Address{
			UserID:    user.ID,
			ClassName: models.ClassNameContact,
			ClassPK:   user.ContactID,
			Street1:   incoming.Street,
			City:      incoming.City,
			Zip:       incoming.Zip,
			TypeID:    models.AddressTypeBusiness,
			Mailing:   true,
			Primary:   true,
		})
		if err != nil {
			return result, storageErr("add business address", user.ID, err)
		}
		user.Addresses = append(user.Addresses, *address)
		result.Address = address
	}

	return result, nil
}
