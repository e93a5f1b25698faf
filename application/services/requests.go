package services

import (
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "refdata-backend/pkg/errors"
)

var validate = validator.New()

// CreateBookRequest asks for a new reference book attached to an owning
// entity
type CreateBookRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	OwnerID string `json:"owner_id" validate:"required"`
}

// Validate checks the request against its constraints
func (r CreateBookRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Normalized returns a copy with trimmed text fields
func (r CreateBookRequest) Normalized() CreateBookRequest {
	r.Name = strings.TrimSpace(r.Name)
	return r
}

// ItemCreateRequest asks for a new item under a parent
type ItemCreateRequest struct {
	ParentID    string `json:"parent_id" validate:"required"`
	Value       string `json:"value" validate:"required,min=1,max=200"`
	Description string `json:"description"`
}

// Validate checks the request against its constraints
func (r ItemCreateRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Normalized returns a copy with trimmed text fields
func (r ItemCreateRequest) Normalized() ItemCreateRequest {
	r.Value = strings.TrimSpace(r.Value)
	r.Description = strings.TrimSpace(r.Description)
	return r
}

// LeafEditRequest carries an item edit plus the version the caller
// observed, the optimistic concurrency token
type LeafEditRequest struct {
	ID          string `json:"id" validate:"required"`
	Value       string `json:"value" validate:"required,min=1,max=200"`
	Description string `json:"description"`
	Version     int    `json:"version" validate:"min=0"`
}

// Validate checks the request against its constraints
func (r LeafEditRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Normalized returns a copy with trimmed text fields
func (r LeafEditRequest) Normalized() LeafEditRequest {
	r.Value = strings.TrimSpace(r.Value)
	r.Description = strings.TrimSpace(r.Description)
	return r
}

// RootEditRequest carries a book rename plus the observed root version
type RootEditRequest struct {
	OwnerID     string `json:"owner_id" validate:"required"`
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description"`
	Version     int    `json:"version" validate:"min=0"`
}

// Validate checks the request against its constraints
func (r RootEditRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return nil
}

// Normalized returns a copy with trimmed text fields
func (r RootEditRequest) Normalized() RootEditRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	return r
}
