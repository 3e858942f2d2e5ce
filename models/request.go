package models

import (
	"github.com/go-playground/validator/v10"
)

// CreateNodeRequest represents the request body for creating a node.
// A missing or zero ParentID creates a root.
type CreateNodeRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=2000"`
	ParentID    int64  `json:"parentId" validate:"omitempty,gt=0"`
}

// UpdateNodeRequest represents the request body for renaming a node or
// editing its description. Version is the version the caller last observed.
type UpdateNodeRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Version     int64   `json:"version" validate:"gte=0"`
}

// MoveNodeRequest represents the request body for moving a subtree.
// A nil NewParentID promotes the node to root.
type MoveNodeRequest struct {
	NewParentID *int64 `json:"newParentId" validate:"omitempty,gt=0"`
}

// Validate validates the create node request
func (r *CreateNodeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the update node request
func (r *UpdateNodeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the move node request
func (r *MoveNodeRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
