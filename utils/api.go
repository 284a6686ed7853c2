package utils

import (
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/course-catalog/database"
	"github.com/sahilchouksey/course-catalog/utils/response"
)

// StoreHandler is a handler that reads the database straight from the store
type StoreHandler func(c *fiber.Ctx, store database.Storage) error

// MakeHTTPHandleFunc binds store to handler. A returned error that has not
// written a response becomes a 500 in the standard envelope.
func MakeHTTPHandleFunc(handler StoreHandler, store database.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := handler(c, store); err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return response.Error(c, fe.Code, fe.Message, "ERROR")
			}
			return response.InternalServerError(c, err.Error())
		}
		return nil
	}
}
