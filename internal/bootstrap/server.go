package bootstrap

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tanakasan3/lana-bank-sub001/internal/services"
)

// newHTTPServer builds the minimal admin surface this module exposes: a
// liveness probe. The full query/command HTTP API (spec.md's GraphQL
// admin surface) is explicitly out of scope; everything app-facing here
// runs through the rabbitmq consumer and the job runtime instead.
func newHTTPServer(app *services.Service, addr string) *fiber.App {
	f := fiber.New(fiber.Config{DisableStartupMessage: true})

	f.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	return f
}
