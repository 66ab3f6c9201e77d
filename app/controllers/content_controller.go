package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/YaoKonate/SikaMarket/app/repository"
	"github.com/YaoKonate/SikaMarket/internal/pkg/coalesce"
	"github.com/YaoKonate/SikaMarket/internal/pkg/usercontext"
	"github.com/YaoKonate/SikaMarket/internal/pkg/views"
)

// contentLookups dedupes concurrent content row lookups across requests.
// 30s is short enough that catalog edits show up quickly.
var contentLookups = coalesce.New(30 * time.Second)

type recordViewRequest struct {
	UserID uint `json:"user_id"`
}

// HandleRecordContentView registers a unique view for the authenticated user
// on the content in the path. The response reports whether this call actually
// counted; repeats are 200 with counted=false.
func HandleRecordContentView(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return errorJSON(c, fiber.StatusUnauthorized, "unauthorized", "Authentication required")
	}

	contentID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || contentID == 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_content_id", "Content id must be a positive integer")
	}

	// The body is optional; when a user_id is present it must match the
	// authenticated principal. Views are never recorded on someone's behalf.
	var req recordViewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, "bad_request", "Malformed JSON body")
		}
		if req.UserID != 0 && req.UserID != userCtx.UserID {
			return errorJSON(c, fiber.StatusForbidden, "forbidden", "Cannot record views for another user")
		}
	}

	repos := repository.GetGlobalRepositories()
	guard := views.NewGuard(repos.Content, views.BufferedCounter{Contents: repos.Content}, contentLookups)

	counted, err := guard.RecordView(c.Context(), userCtx.UserID, uint(contentID))
	if err != nil {
		if errors.Is(err, views.ErrContentNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "content_not_found", err.Error())
		}
		return errorJSON(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to record view")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"content_id": contentID,
		"counted":    counted,
	})
}
