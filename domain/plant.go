package domain

import (
	"strings"
	"time"
)

// PlantState is the state of a plant aggregate, rebuilt from its event history
type PlantState struct {
	PlantID          string
	Name             string
	Type             string
	Category         *string
	LatinName        *string
	Description      *string
	ImageURL         *string
	IsDeleted        bool
	WasUserRequested bool
	CreatedBy        string
	LastUpdatedBy    *string
}

// PlantAggregate is the command/validation state machine for one plant
type PlantAggregate struct {
	*AggregateBase
	State PlantState
}

// NewPlantAggregate creates a plant aggregate for the given id
func NewPlantAggregate(id string) *PlantAggregate {
	aggregate := &PlantAggregate{
		State: PlantState{PlantID: id},
	}

	base := NewAggregateBase(AggregateTypePlant, aggregate.applyEvent)
	base.SetID(id)
	aggregate.AggregateBase = base

	return aggregate
}

// PlantPatch is a validated set of field changes on the closed plant field
// set. It is built from the loosely-typed map accepted at the command
// boundary; unknown keys are rejected there so nothing stringly-typed
// travels further.
type PlantPatch struct {
	Name        *string
	Type        *string
	Category    *string
	LatinName   *string
	Description *string
	ImageURL    *string
}

// NewPlantPatch validates a raw change map and converts it into a typed
// patch. An empty value on an optional field clears the field and skips the
// per-field rule; name and type always go through theirs.
func NewPlantPatch(changes map[string]string) (PlantPatch, error) {
	var patch PlantPatch

	if unknown := unknownFields(changes); len(unknown) > 0 {
		return patch, NewValidationError("Invalid fields in update: %s", strings.Join(unknown, ", "))
	}

	for field, value := range changes {
		if value != "" || !isOptionalPlantField(field) {
			if err := validateFieldValue(field, value); err != nil {
				return patch, err
			}
		}

		v := value
		switch field {
		case "name":
			trimmed := strings.TrimSpace(v)
			patch.Name = &trimmed
		case "type":
			patch.Type = &v
		case "category":
			patch.Category = &v
		case "latin_name":
			patch.LatinName = &v
		case "description":
			patch.Description = &v
		case "image_url":
			patch.ImageURL = &v
		}
	}

	return patch, nil
}

// ToMap renders the patch back into the wire/storage change map, in the
// stable order of AllowedPlantFields.
func (p PlantPatch) ToMap() map[string]string {
	changes := make(map[string]string)
	for _, field := range AllowedPlantFields {
		if value := p.field(field); value != nil {
			changes[field] = *value
		}
	}
	return changes
}

func (p PlantPatch) field(name string) *string {
	switch name {
	case "name":
		return p.Name
	case "type":
		return p.Type
	case "category":
		return p.Category
	case "latin_name":
		return p.LatinName
	case "description":
		return p.Description
	case "image_url":
		return p.ImageURL
	}
	return nil
}

// CreatePlant validates the initial plant data and records a PlantCreated
// event. Nothing is recorded when any rule fails.
func (a *PlantAggregate) CreatePlant(
	name string,
	plantType string,
	category *string,
	latinName *string,
	description *string,
	imageURL *string,
	wasUserRequested bool,
	createdBy string,
) error {
	if err := validatePlantName(name); err != nil {
		return err
	}
	if err := validatePlantType(plantType); err != nil {
		return err
	}
	if category != nil {
		if err := validateCategory(*category); err != nil {
			return err
		}
	}
	if latinName != nil {
		if err := validateLatinName(*latinName); err != nil {
			return err
		}
	}
	if description != nil {
		if err := validateDescription(*description); err != nil {
			return err
		}
	}
	if imageURL != nil {
		if err := validateImageURL(*imageURL); err != nil {
			return err
		}
	}

	return a.Apply(PlantCreatedEvent{
		PlantID:          a.GetID(),
		Name:             strings.TrimSpace(name),
		Type:             plantType,
		Category:         category,
		LatinName:        latinName,
		Description:      description,
		ImageURL:         imageURL,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now().UTC(),
		WasUserRequested: wasUserRequested,
	})
}

// UpdatePlant validates a change map, filters out no-op changes and records a
// PlantUpdated event carrying only the fields that actually differ.
func (a *PlantAggregate) UpdatePlant(changes map[string]string, updatedBy string) error {
	if a.State.IsDeleted {
		return NewDomainError("Cannot update deleted plant")
	}

	patch, err := NewPlantPatch(changes)
	if err != nil {
		return err
	}

	filtered := a.filterActualChanges(patch)
	if len(filtered) == 0 {
		return NewDomainError("No actual changes detected")
	}

	return a.Apply(PlantUpdatedEvent{
		PlantID:   a.GetID(),
		Changes:   filtered,
		UpdatedBy: updatedBy,
		UpdatedAt: time.Now().UTC(),
	})
}

// DeletePlant soft deletes the plant
func (a *PlantAggregate) DeletePlant(reason *string, deletedBy string) error {
	if a.State.IsDeleted {
		return NewDomainError("Plant is already deleted")
	}

	return a.Apply(PlantDeletedEvent{
		PlantID:   a.GetID(),
		DeletedBy: deletedBy,
		DeletedAt: time.Now().UTC(),
		Reason:    reason,
	})
}

// RestorePlant restores a previously deleted plant
func (a *PlantAggregate) RestorePlant(restoredBy string) error {
	if !a.State.IsDeleted {
		return NewDomainError("Plant is not deleted and cannot be restored")
	}

	return a.Apply(PlantRestoredEvent{
		PlantID:    a.GetID(),
		RestoredBy: restoredBy,
		RestoredAt: time.Now().UTC(),
	})
}

// filterActualChanges keeps only patch fields whose value differs from the
// current aggregate state.
func (a *PlantAggregate) filterActualChanges(patch PlantPatch) map[string]string {
	filtered := make(map[string]string)

	if patch.Name != nil && *patch.Name != a.State.Name {
		filtered["name"] = *patch.Name
	}
	if patch.Type != nil && *patch.Type != a.State.Type {
		filtered["type"] = *patch.Type
	}
	if patch.Category != nil && strPtrValue(a.State.Category) != *patch.Category {
		filtered["category"] = *patch.Category
	}
	if patch.LatinName != nil && strPtrValue(a.State.LatinName) != *patch.LatinName {
		filtered["latin_name"] = *patch.LatinName
	}
	if patch.Description != nil && strPtrValue(a.State.Description) != *patch.Description {
		filtered["description"] = *patch.Description
	}
	if patch.ImageURL != nil && strPtrValue(a.State.ImageURL) != *patch.ImageURL {
		filtered["image_url"] = *patch.ImageURL
	}

	return filtered
}

// strPtrValue treats an unset optional field the same as an empty one
func strPtrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// strPtrOrNil keeps the empty-means-unset representation: optional fields
// are never stored as a pointer to an empty string. The plant read model
// uses the same mapping.
func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// applyEvent is the pure state transition for plant events. History is
// trusted: no business rules are re-checked on replay.
func (a *PlantAggregate) applyEvent(event interface{}) error {
	switch e := event.(type) {
	case PlantCreatedEvent:
		a.State.PlantID = e.PlantID
		a.State.Name = e.Name
		a.State.Type = e.Type
		a.State.Category = e.Category
		a.State.LatinName = e.LatinName
		a.State.Description = e.Description
		a.State.ImageURL = e.ImageURL
		a.State.WasUserRequested = e.WasUserRequested
		a.State.CreatedBy = e.CreatedBy
		a.State.IsDeleted = false

	case PlantUpdatedEvent:
		for field, value := range e.Changes {
			switch field {
			case "name":
				a.State.Name = value
			case "type":
				a.State.Type = value
			case "category":
				a.State.Category = strPtrOrNil(value)
			case "latin_name":
				a.State.LatinName = strPtrOrNil(value)
			case "description":
				a.State.Description = strPtrOrNil(value)
			case "image_url":
				a.State.ImageURL = strPtrOrNil(value)
			}
		}
		updatedBy := e.UpdatedBy
		a.State.LastUpdatedBy = &updatedBy

	case PlantDeletedEvent:
		a.State.IsDeleted = true

	case PlantRestoredEvent:
		a.State.IsDeleted = false
	}

	return nil
}
