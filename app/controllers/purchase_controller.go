package controllers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/usercontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// HandleListPurchases returns the caller's purchases, newest first.
func HandleListPurchases(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := (page - 1) * limit

	repos := repository.GetGlobalRepositories()

	total, err := repos.Purchase.CountByUser(userCtx.UserID)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to count purchases")
	}
	purchases, err := repos.Purchase.ListByUser(userCtx.UserID, offset, limit)
	if err != nil {
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to list purchases")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"purchases": purchases,
		"page":      page,
		"limit":     limit,
		"total":     total,
	})
}

// HandleCheckAccess reports whether the caller owns a given content, either
// through a purchase or because the content is free.
func HandleCheckAccess(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	contentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || contentID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_content_id", "Content id must be a positive integer")
	}

	repos := repository.GetGlobalRepositories()

	content, err := repos.Content.GetByID(uint(contentID))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, "content_not_found", "Content not found")
	}
	if content.IsFree {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"has_access": true, "reason": "free"})
	}

	purchase, err := repos.Purchase.GetByUserAndContent(userCtx.UserID, uint(contentID))
	if err != nil || purchase == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"has_access": false})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"has_access": true, "reason": "purchased"})
}
