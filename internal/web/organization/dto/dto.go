// Package dto request and response payloads of the organization API.
package dto

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Laisky/fingenius-compliance/internal/web/organization/model"
)

// RegisterRequest body of POST /register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Industry string `json:"industry"`
	Country  string `json:"country"`
}

// LoginRequest body of POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Organization is the public view of model.Organization, it never carries the password.
type Organization struct {
	ID              primitive.ObjectID `json:"_id"`
	Name            string             `json:"name"`
	Email           string             `json:"email"`
	Industry        model.Industry     `json:"industry"`
	Country         string             `json:"country"`
	ProfileImageURL string             `json:"profileImageUrl,omitempty"`
	Subscription    model.Subscription `json:"subscription"`
	LastLogin       *time.Time         `json:"lastLogin,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// NewOrganization converts the model into its public view.
func NewOrganization(org *model.Organization) (*Organization, error) {
	out := new(Organization)
	if err := copier.Copy(out, org); err != nil {
		return nil, errors.Wrap(err, "copy organization")
	}

	return out, nil
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Message      string        `json:"message"`
	Token        string        `json:"token"`
	Organization *Organization `json:"organization"`
}
