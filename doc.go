// Package swaggerserver binds a Swagger 2.0 document to plain Go functions.
//
// Every (path, method) pair declared in the document becomes a gin route
// whose handler extracts the declared parameters from the request, converts
// them to the declared types, passes them positionally to the registered
// function and writes the function's Result back to the client.
//
//	reg := swaggerserver.Registry{
//		"getPetById": swaggerserver.Func(func(petID int64) swaggerserver.Result {
//			return swaggerserver.NewResult(http.StatusOK, map[string]any{"id": petID}, nil)
//		}, "petId"),
//	}
//
//	table, err := swaggerserver.Build(ctx, "petstore.yaml", reg)
//	if err != nil {
//		return err
//	}
//	r := gin.New()
//	if err := table.Mount(r); err != nil {
//		return err
//	}
//
// Parameters are matched to function arguments by the names given to [Func],
// so the order of declarations in the document does not matter. A leading
// context.Context argument receives the request context.
package swaggerserver
