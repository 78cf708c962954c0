// Package petstore is the sample pet API used by `swaggerserver serve --demo`.
package petstore

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/mark3labs/swaggerserver"
)

// Spec is the Swagger 2.0 document the registry implements.
//
//go:embed petstore.yaml
var Spec []byte

// Registry returns the handlers for every operation in Spec.
func Registry() swaggerserver.Registry {
	return swaggerserver.Registry{
		"getAllPets":    swaggerserver.Func(getAllPets),
		"createPet":     swaggerserver.Func(createPet, "pet"),
		"changePetName": swaggerserver.Func(changePetName, "petId, petName"),
		"getPetById":    swaggerserver.Func(getPetByID, "petId"),
	}
}

func getAllPets() swaggerserver.Result {
	return swaggerserver.NewResult(http.StatusOK, []string{"List", "of", "pets"}, nil)
}

func createPet(pet map[string]any) swaggerserver.Result {
	return swaggerserver.NewResult(http.StatusOK, "Success!", nil)
}

func changePetName(petID int64, petName string) swaggerserver.Result {
	return swaggerserver.NewResult(http.StatusOK, map[string]any{
		"id":            petRef(petID),
		"nameChangedTo": petName,
	}, nil)
}

func getPetByID(petID int64) swaggerserver.Result {
	return swaggerserver.NewResult(http.StatusOK, map[string]any{
		"id":   petRef(petID),
		"name": "Fido",
	}, nil)
}

func petRef(id int64) string { return fmt.Sprintf("pet_%d", id) }
