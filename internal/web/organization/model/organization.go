// Package model contains the organization models.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Industry is the fixed industry enumeration.
type Industry string

const (
	IndustryTechnology Industry = "technology"
	IndustryFinance    Industry = "finance"
	IndustryHealthcare Industry = "healthcare"
	IndustryRetail     Industry = "retail"
	IndustryOther      Industry = "other"
)

// Valid reports whether i is one of the known industries.
func (i Industry) Valid() bool {
	switch i {
	case IndustryTechnology, IndustryFinance, IndustryHealthcare, IndustryRetail, IndustryOther:
		return true
	default:
		return false
	}
}

// Subscription plan and state of an organization.
type Subscription struct {
	Plan      string    `bson:"plan" json:"plan"`
	Status    string    `bson:"status" json:"status"`
	StartDate time.Time `bson:"start_date" json:"startDate"`
}

const (
	PlanFree           = "free"
	SubscriptionActive = "active"
)

// Organization is the tenant account, it owns files.
type Organization struct {
	// ID unique identifier
	ID primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	// Name display name, trimmed
	Name string `bson:"name" json:"name"`
	// Email login account, trimmed and lowercased, unique
	Email string `bson:"email" json:"email"`
	// Password bcrypt hash, never the raw value
	Password string   `bson:"password" json:"-"`
	Industry Industry `bson:"industry" json:"industry"`
	Country  string   `bson:"country" json:"country"`
	// ProfileImageURL optional profile photo in the asset store
	ProfileImageURL string       `bson:"profile_image_url,omitempty" json:"profileImageUrl,omitempty"`
	Subscription    Subscription `bson:"subscription" json:"subscription"`
	// LastLogin nil until the first successful login
	LastLogin *time.Time `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// Collection returns the name of the MongoDB collection for organizations
func (Organization) Collection() string {
	return "organizations"
}

// NewOrganization creates an organization on the free plan.
func NewOrganization(now time.Time) *Organization {
	return &Organization{
		ID: primitive.NewObjectID(),
		Subscription: Subscription{
			Plan:      PlanFree,
			Status:    SubscriptionActive,
			StartDate: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
