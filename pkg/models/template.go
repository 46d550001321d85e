package models

// Template is a selectable entry of the node catalog.
type Template struct {
	ID          string   `json:"id"          yaml:"id"          validate:"required"`
	Kind        NodeKind `json:"kind"        yaml:"kind"        validate:"required,oneof=trigger action condition"`
	Name        string   `json:"name"        yaml:"name"        validate:"required"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon"        yaml:"icon"        validate:"required"`
	Color       string   `json:"color"       yaml:"color"       validate:"required,hexcolor"`
}
