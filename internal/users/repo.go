package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

// Repository reads the user accounts owned by the identity service.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Directory answers the profile and capability questions the order engine
// asks about customers and delivery agents.
type Directory struct {
	repo *Repository
}

func NewDirectory(repo *Repository) (*Directory, error) {
	if repo == nil {
		return nil, errors.New("users repository required")
	}
	return &Directory{repo: repo}, nil
}

// GetDeliveryAddress returns the customer's saved delivery address and the
// best contact for the courier.
func (d *Directory) GetDeliveryAddress(ctx context.Context, customerID uuid.UUID) (DeliveryContact, error) {
	user, err := d.repo.FindByID(ctx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DeliveryContact{}, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if err != nil {
		return DeliveryContact{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer profile")
	}
	contact := contactFromModel(user)
	if strings.TrimSpace(contact.Address) == "" {
		return DeliveryContact{}, pkgerrors.New(pkgerrors.CodeValidation, "customer has no delivery address on file")
	}
	return contact, nil
}

// HasDeliveryAgentCapability reports whether actorID is an active delivery agent.
// Unknown actors simply lack the capability.
func (d *Directory) HasDeliveryAgentCapability(ctx context.Context, actorID uuid.UUID) (bool, error) {
	user, err := d.repo.FindByID(ctx, actorID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load actor")
	}
	return user.IsActive && user.Role == enums.ActorRoleDeliveryAgent, nil
}
