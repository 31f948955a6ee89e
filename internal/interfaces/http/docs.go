package http

import (
	"fmt"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
)

// MountDocs sirve Swagger UI en /docs con el documento indicado.
// El documento se genera desde las anotaciones de los handlers (swag init).
func MountDocs(app *fiber.App, filePath, title string) error {
	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("documento swagger: %w", err)
	}
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: filePath,
		Path:     "docs",
		Title:    title,
	}))
	return nil
}
