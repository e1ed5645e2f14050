package avatar

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tulia/core"
)

const (
	DefaultStyle          = "adventurer"
	DefaultPrimaryColor   = "#000000"
	DefaultSecondaryColor = "#ffffff"
)

type Enhancements struct {
	Level1 []string `json:"level1"`
	Level2 []string `json:"level2"`
	Level3 []string `json:"level3"`
}

type Colors struct {
	Primary   string `json:"primary" validate:"omitempty,hexcolor"`
	Secondary string `json:"secondary" validate:"omitempty,hexcolor"`
}

// Config is how a child's avatar looks.
type Config struct {
	ChildID      string       `json:"child_id"`
	Seed         string       `json:"seed"`
	Style        string       `json:"style"`
	Enhancements Enhancements `json:"enhancements"`
	Colors       Colors       `json:"colors"`
}

// Default returns the avatar a child gets before customizing it.
func Default(childID string) Config {
	return Config{
		ChildID: childID,
		Seed:    childID,
		Style:   DefaultStyle,
		Enhancements: Enhancements{
			Level1: []string{},
			Level2: []string{},
			Level3: []string{},
		},
		Colors: Colors{Primary: DefaultPrimaryColor, Secondary: DefaultSecondaryColor},
	}
}

// UpdateConfig defines what may be changed on an avatar. Empty fields are left untouched.
type UpdateConfig struct {
	Seed         string        `json:"seed"`
	Style        string        `json:"style"`
	Enhancements *Enhancements `json:"enhancements"`
	Colors       Colors        `json:"colors"`
}

func (uc *UpdateConfig) Validate(validate *validator.Validate) error {
	uc.Seed = core.CleanString(uc.Seed)
	uc.Style = core.CleanString(uc.Style, true /* lower */)
	uc.Colors.Primary = core.CleanString(uc.Colors.Primary, true /* lower */)
	uc.Colors.Secondary = core.CleanString(uc.Colors.Secondary, true /* lower */)
	return validate.Struct(uc)
}

// Apply returns cfg with uc's set fields.
func (uc UpdateConfig) Apply(cfg Config) Config {
	if uc.Seed != "" {
		cfg.Seed = uc.Seed
	}
	if uc.Style != "" {
		cfg.Style = uc.Style
	}
	if uc.Enhancements != nil {
		cfg.Enhancements = *uc.Enhancements
	}
	if uc.Colors.Primary != "" {
		cfg.Colors.Primary = uc.Colors.Primary
	}
	if uc.Colors.Secondary != "" {
		cfg.Colors.Secondary = uc.Colors.Secondary
	}
	return cfg
}
