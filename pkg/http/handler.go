package http

import "github.com/labstack/echo/v4"

// Handler registers its routes on a group shared with the server middleware.
type Handler interface {
	RegisterRoutes(g *echo.Group)
}
