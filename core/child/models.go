package child

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tulia/core"
	"github.com/trezcool/tulia/core/avatar"
)

// Genders
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

const (
	MinAge   = 7
	MaxAge   = 12
	MaxLevel = 3
)

type Child struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	Age                int            `json:"age"`
	Gender             string         `json:"gender"`
	AutismSupportLevel int            `json:"autism_support_level"`
	CurrentLevel       int            `json:"current_level"`
	Avatar             *avatar.Config `json:"avatar,omitempty"`
	CreatedAt          time.Time      `json:"created_at"` // UTC
	UpdatedAt          time.Time      `json:"updated_at"` // UTC
}

func (c Child) Ref() core.ChildRef {
	return core.ChildRef{ID: c.ID, Name: c.Name}
}

// Parent is the guardian registered along with a child; notifications go to them.
type Parent struct {
	ID               string    `json:"id"`
	ChildID          string    `json:"child_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	PhoneNumber      string    `json:"phone_number"`
	CameraPermission bool      `json:"camera_permission"`
	MicPermission    bool      `json:"mic_permission"`
	CreatedAt        time.Time `json:"created_at"` // UTC
}

type NewParent struct {
	Name             string `json:"name" validate:"required,notblank"`
	Email            string `json:"email" validate:"required,email"`
	PhoneNumber      string `json:"phone_number" validate:"omitempty,max=20"`
	CameraPermission bool   `json:"camera_permission"`
	MicPermission    bool   `json:"mic_permission"`
}

// NewRegistration contains information needed to register a child and their parent.
type NewRegistration struct {
	Name               string    `json:"name" validate:"required,notblank"`
	Age                int       `json:"age" validate:"required,min=7,max=12"`
	Gender             string    `json:"gender" validate:"required,oneof=Male Female Other"`
	AutismSupportLevel int       `json:"autism_support_level" validate:"required,min=1,max=3"`
	Parent             NewParent `json:"parent"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Parent.Name = core.CleanString(nr.Parent.Name)
	nr.Parent.Email = core.CleanString(nr.Parent.Email, true /* lower */)
	nr.Parent.PhoneNumber = core.CleanString(nr.Parent.PhoneNumber)
	return validate.Struct(nr)
}

// UpdateChild defines what may be changed on an existing Child: nothing but the level and the avatar.
type UpdateChild struct {
	CurrentLevel *int                 `json:"current_level" validate:"omitempty,min=1,max=3"`
	Avatar       *avatar.UpdateConfig `json:"avatar"`
}

func (uc *UpdateChild) Validate(validate *validator.Validate) error {
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Avatar != nil {
		return uc.Avatar.Validate(validate)
	}
	return nil
}
