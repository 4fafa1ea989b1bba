package domain

import (
	"net/url"
	"path"
	"regexp"
	"sort"
	"strings"

	"example.com/florahub/services/plants/utils"
)

// PlantTypes is the closed set of valid plant type values
var PlantTypes = []string{"gemuese", "obst", "kraeuter", "blumen", "baeume", "straeucher"}

// AllowedPlantFields is the closed set of patchable plant fields
var AllowedPlantFields = []string{"name", "type", "category", "latin_name", "description", "image_url"}

var (
	plantNamePattern = regexp.MustCompile(`^[a-zA-ZäöüÄÖÜß0-9\s\-'.]+$`)
	latinNamePattern = regexp.MustCompile(`^[A-Z][a-z]+ [a-z]+`)
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

func isValidPlantType(plantType string) bool {
	for _, t := range PlantTypes {
		if t == plantType {
			return true
		}
	}
	return false
}

func isAllowedPlantField(field string) bool {
	for _, f := range AllowedPlantFields {
		if f == field {
			return true
		}
	}
	return false
}

// isOptionalPlantField reports whether an empty value clears the field
// instead of being rejected. Name and type can never be empty.
func isOptionalPlantField(field string) bool {
	switch field {
	case "category", "latin_name", "description", "image_url":
		return true
	}
	return false
}

func validatePlantName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return NewValidationError("Plant name cannot be empty")
	}

	if len([]rune(trimmed)) < 2 {
		return NewValidationError("Plant name must be at least 2 characters long")
	}

	if len([]rune(trimmed)) > 100 {
		return NewValidationError("Plant name cannot exceed 100 characters")
	}

	if !plantNamePattern.MatchString(trimmed) {
		return NewValidationError("Plant name contains invalid characters")
	}

	return nil
}

func validatePlantType(plantType string) error {
	if !isValidPlantType(plantType) {
		return NewValidationError("Invalid plant type. Allowed: %s", strings.Join(PlantTypes, ", "))
	}
	return nil
}

func validateCategory(category string) error {
	if len([]rune(strings.TrimSpace(category))) > 50 {
		return NewValidationError("Category cannot exceed 50 characters")
	}
	return nil
}

func validateLatinName(latinName string) error {
	trimmed := strings.TrimSpace(latinName)

	if len([]rune(trimmed)) > 100 {
		return NewValidationError("Latin name cannot exceed 100 characters")
	}

	if !latinNamePattern.MatchString(trimmed) {
		return NewValidationError(`Latin name should follow "Genus species" format (e.g., "Solanum lycopersicum")`)
	}

	return nil
}

func validateDescription(description string) error {
	if len([]rune(strings.TrimSpace(description))) > 2000 {
		return NewValidationError("Description cannot exceed 2000 characters")
	}
	return nil
}

func validateImageURL(imageURL string) error {
	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return NewValidationError("Invalid image URL format")
	}

	ext := strings.ToLower(path.Ext(parsed.Path))
	for _, allowed := range imageExtensions {
		if ext == allowed {
			return nil
		}
	}

	return NewValidationError("Image URL must point to a valid image file (.jpg, .jpeg, .png, .gif, .webp)")
}

func validatePlantID(plantID string) error {
	if strings.TrimSpace(plantID) == "" {
		return NewValidationError("Plant ID cannot be empty")
	}

	if !utils.IsValidUUID(plantID) {
		return NewValidationError("Plant ID must be a valid UUID")
	}

	return nil
}

func validateReason(reason string) error {
	trimmed := strings.TrimSpace(reason)

	if trimmed == "" {
		return NewValidationError("Reason cannot be empty")
	}

	if len([]rune(trimmed)) < 10 {
		return NewValidationError("Reason must be at least 10 characters long")
	}

	if len([]rune(trimmed)) > 500 {
		return NewValidationError("Reason cannot exceed 500 characters")
	}

	return nil
}

func validateUserName(userName string) error {
	trimmed := strings.TrimSpace(userName)

	if trimmed == "" {
		return NewValidationError("User name cannot be empty")
	}

	if len([]rune(trimmed)) > 100 {
		return NewValidationError("User name cannot exceed 100 characters")
	}

	return nil
}

func validateComment(comment string, mandatory bool) error {
	trimmed := strings.TrimSpace(comment)

	if mandatory && trimmed == "" {
		return NewValidationError("Comment is required for rejection")
	}

	if trimmed != "" && len([]rune(trimmed)) > 1000 {
		return NewValidationError("Comment cannot exceed 1000 characters")
	}

	return nil
}

// validateFieldValue applies the per-field rule of a known plant field
func validateFieldValue(field, value string) error {
	switch field {
	case "name":
		return validatePlantName(value)
	case "type":
		return validatePlantType(value)
	case "category":
		return validateCategory(value)
	case "latin_name":
		return validateLatinName(value)
	case "description":
		return validateDescription(value)
	case "image_url":
		return validateImageURL(value)
	default:
		return NewValidationError("Unknown field: %s", field)
	}
}

// unknownFields returns the sorted keys of changes that fall outside the
// allowed plant field set
func unknownFields(changes map[string]string) []string {
	var unknown []string
	for field := range changes {
		if !isAllowedPlantField(field) {
			unknown = append(unknown, field)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// ValidateProposedPlantData validates the proposed data of a plant creation
// request: name and type are required, optional fields are validated when
// present and non-empty, unknown keys are rejected.
func ValidateProposedPlantData(proposed map[string]string) error {
	for _, field := range []string{"name", "type"} {
		if strings.TrimSpace(proposed[field]) == "" {
			return NewValidationError("Field '%s' is required for plant creation", field)
		}
	}

	if unknown := unknownFields(proposed); len(unknown) > 0 {
		return NewValidationError("Unknown fields in proposed data: %s", strings.Join(unknown, ", "))
	}

	if err := validatePlantName(proposed["name"]); err != nil {
		return err
	}
	if err := validatePlantType(proposed["type"]); err != nil {
		return err
	}

	for _, field := range []string{"category", "latin_name", "description", "image_url"} {
		if value, ok := proposed[field]; ok && value != "" {
			if err := validateFieldValue(field, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// ValidateProposedChanges validates the proposed changes of an update request.
// An empty value clears an optional field; name and type must always pass
// their rules. The same rules apply again when an approved request is turned
// into an update command.
func ValidateProposedChanges(changes map[string]string) error {
	if len(changes) == 0 {
		return NewValidationError("Proposed changes cannot be empty")
	}

	if unknown := unknownFields(changes); len(unknown) > 0 {
		return NewValidationError("Invalid fields in proposed changes: %s", strings.Join(unknown, ", "))
	}

	for field, value := range changes {
		if value == "" && isOptionalPlantField(field) {
			continue
		}
		if err := validateFieldValue(field, value); err != nil {
			return err
		}
	}

	return nil
}
