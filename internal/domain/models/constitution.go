// internal/domain/models/constitution.go
package models

// ConstitutionSectionInput is what the builder sends to the model.
type ConstitutionSectionInput struct {
	SectionType       string `json:"section_type" validate:"required,notblank,max=80" label:"Section type"`
	ClanName          string `json:"clan_name" validate:"required,notblank,max=80" label:"Clan name"`
	Game              string `json:"game" validate:"required,notblank,max=80" label:"Game"`
	AdditionalDetails string `json:"additional_details,omitempty" validate:"max=2000" label:"Additional details"`
}

// ConstitutionSection is the drafted section returned by the model.
type ConstitutionSection struct {
	SectionTitle   string `json:"section_title" validate:"required" label:"Section title"`
	SectionContent string `json:"section_content" validate:"required" label:"Section content"`
}
