package versions

import (
	"log"

	"diversity_platform/reporting/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Migration_0_seed_reference_data loads the reference rows the reporting UI
// expects on a fresh install: the admin and publisher roles, the three
// standard diversity categories with their default values, and the default
// person types.
func Migration_0_seed_reference_data(txn *gorm.DB) error {
	roles := []schema.Role{
		{Id: uuid.New(), Name: "admin", Description: "platform administrator"},
		{Id: uuid.New(), Name: "publisher", Description: "may publish record sets"},
	}
	for _, role := range roles {
		var existing schema.Role
		result := txn.Limit(1).Find(&existing, "name = ?", role.Name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if result := txn.Create(&role); result.Error != nil {
				return result.Error
			}
		}
	}

	categories := map[string][]string{
		"Gender":     {"Women", "Men", "Non-binary"},
		"Ethnicity":  {"BAME", "White"},
		"Disability": {"Disabled", "Non-disabled"},
	}
	for name, values := range categories {
		var existing schema.Category
		result := txn.Limit(1).Find(&existing, "name = ?", name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 0 {
			continue
		}

		category := schema.Category{Id: uuid.New(), Name: name}
		if result := txn.Create(&category); result.Error != nil {
			return result.Error
		}
		for _, value := range values {
			categoryValue := schema.CategoryValue{Id: uuid.New(), Name: value, CategoryId: category.Id}
			if result := txn.Create(&categoryValue); result.Error != nil {
				return result.Error
			}
		}
		log.Printf("seeded category %v with %v values", name, len(values))
	}

	for _, name := range []string{"Staff", "Contributors", "Public Figures"} {
		var existing schema.PersonType
		result := txn.Limit(1).Find(&existing, "name = ?", name)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			personType := schema.PersonType{Id: uuid.New(), Name: name}
			if result := txn.Create(&personType); result.Error != nil {
				return result.Error
			}
		}
	}

	return nil
}
