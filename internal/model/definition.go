package model

// Definition is a single catalog entry. Definitions are immutable after
// load; a catalog reload swaps the whole set.
type Definition struct {
	ModelID            string             `json:"model_id"`
	DisplayName        string             `json:"display_name"`
	Description        string             `json:"description,omitempty"`
	ModelPath          string             `json:"model_path"`
	ArmsPath           string             `json:"arms_path,omitempty"`
	Team               TeamSlot           `json:"team"`
	Price              int64              `json:"price"`
	VipOnly            bool               `json:"vip_only"`
	RequiredPermission string             `json:"required_permission,omitempty"`
	AllowedSteamIDs    []uint64           `json:"allowed_steam_ids,omitempty"`
	Enabled            bool               `json:"enabled"`
	Priority           int                `json:"priority"`
	Components         []ComponentVariant `json:"components,omitempty"`
}

// ComponentVariant is a sub-selectable mesh group of a model (head, hair,
// backpack, ...) with its own option list.
type ComponentVariant struct {
	ComponentID   string          `json:"component_id"`
	BodyGroupName string          `json:"body_group_name"`
	DisplayName   string          `json:"display_name"`
	Description   string          `json:"description,omitempty"`
	Price         int64           `json:"price"`
	Options       []VariantOption `json:"options"`
}

// VariantOption is one selectable index of a component.
type VariantOption struct {
	OptionID        string `json:"option_id"`
	DisplayName     string `json:"display_name"`
	Index           int    `json:"index"`
	AdditionalPrice int64  `json:"additional_price"`
	IsDefault       bool   `json:"is_default"`
}

// Component returns the component with the given id, or nil.
func (d *Definition) Component(componentID string) *ComponentVariant {
	for i := range d.Components {
		if d.Components[i].ComponentID == componentID {
			return &d.Components[i]
		}
	}
	return nil
}

// DefaultOption returns the option flagged as default, falling back to the
// first option when none is flagged. Nil when the component has no options.
func (c *ComponentVariant) DefaultOption() *VariantOption {
	for i := range c.Options {
		if c.Options[i].IsDefault {
			return &c.Options[i]
		}
	}
	if len(c.Options) > 0 {
		return &c.Options[0]
	}
	return nil
}

// Option returns the option with the given id, or nil.
func (c *ComponentVariant) Option(optionID string) *VariantOption {
	for i := range c.Options {
		if c.Options[i].OptionID == optionID {
			return &c.Options[i]
		}
	}
	return nil
}
