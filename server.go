package connect

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// NewServer builds a fiber-backed server with the broker routes mounted.
// Callers own the listen/shutdown lifecycle:
//
//	srv := connect.NewServer(controller)
//	srv.Serve(":8080")
func NewServer(controller *HTTPController) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	controller.RegisterRoutes(srv.Router().Group("/"))

	return srv
}
