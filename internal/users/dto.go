package users

import "github.com/angelmondragon/mealflow-backend/pkg/db/models"

// DeliveryContact is where and how to reach a customer for a delivery.
type DeliveryContact struct {
	Address string
	Contact string
}

func contactFromModel(user *models.User) DeliveryContact {
	out := DeliveryContact{}
	if user.DeliveryAddress != nil {
		out.Address = *user.DeliveryAddress
	}
	if user.Phone != nil && *user.Phone != "" {
		out.Contact = *user.Phone
	} else {
		out.Contact = user.Email
	}
	return out
}
