package handler

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"timecapsule/internal/model"
	"timecapsule/internal/service"
)

// capsuleView is the response shape of a capsule. The message stays hidden until OpenAt.
type capsuleView struct {
	model.Capsule
	Sealed bool `json:"sealed"`
}

type capsuleListView struct {
	Items []capsuleView `json:"data"`
	Total int           `json:"total"`
}

func newCapsuleView(c model.Capsule, now time.Time) capsuleView {
	v := capsuleView{Capsule: c, Sealed: c.Sealed(now)}
	if v.Sealed {
		v.Message = ""
	}
	return v
}

// Clock returns the current time; swapped in tests.
type Clock func() time.Time

// parseID returns a copy of the named path param when it is a UUID. Params alias
// fasthttp's request buffer, and ids outlive the request in upload goroutines.
func parseID(c *fiber.Ctx, name string) (string, bool) {
	id := c.Params(name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return utils.CopyString(id), true
}

// CreateCapsule creates a capsule from a JSON body.
//
//	@Summary	Create a capsule
//	@Tags		capsules
//	@Accept		json
//	@Produce	json
//	@Param		capsule	body		service.CreateCapsuleInput	true	"capsule"
//	@Success	201		{object}	capsuleView
//	@Failure	400		{object}	errorPayload
//	@Router		/capsules [post]
func CreateCapsule(svc service.CapsuleService, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in service.CreateCapsuleInput
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		capsule, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(newCapsuleView(*capsule, now()))
	}
}

// ListCapsules lists capsules with limit & offset.
//
//	@Summary	List capsules
//	@Tags		capsules
//	@Produce	json
//	@Param		limit	query		int	false	"page size"	default(10)
//	@Param		offset	query		int	false	"offset"	default(0)
//	@Success	200		{object}	capsuleListView
//	@Failure	400		{object}	errorPayload
//	@Router		/capsules [get]
func ListCapsules(svc service.CapsuleService, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}

		t := now()
		out := capsuleListView{Items: make([]capsuleView, 0, len(res.Items)), Total: res.Total}
		for _, item := range res.Items {
			out.Items = append(out.Items, newCapsuleView(item, t))
		}
		return c.JSON(out)
	}
}

// GetCapsule returns a capsule by ID.
//
//	@Summary	Get a capsule
//	@Tags		capsules
//	@Produce	json
//	@Param		id	path		string	true	"capsule id"
//	@Success	200	{object}	capsuleView
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/capsules/{id} [get]
func GetCapsule(svc service.CapsuleService, now Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		capsule, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(newCapsuleView(*capsule, now()))
	}
}

// DeleteCapsule deletes a capsule and all of its attachments.
//
//	@Summary	Delete a capsule
//	@Tags		capsules
//	@Param		id	path	string	true	"capsule id"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Failure	502	{object}	errorPayload
//	@Router		/capsules/{id} [delete]
func DeleteCapsule(svc service.CapsuleService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
