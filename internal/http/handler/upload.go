package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"timecapsule/internal/model"
	"timecapsule/internal/service"
	"timecapsule/internal/upload"
)

const defaultAttachmentLimit = 10

// streamEvent is one NDJSON line of a streamed upload. Exactly one field is set.
type streamEvent struct {
	Progress *int                `json:"progress,omitempty"`
	Record   *model.UploadRecord `json:"record,omitempty"`
	Error    *errorEnvelope      `json:"error,omitempty"`
}

// UploadAttachment uploads a file into a capsule (multipart/form-data, field name: file).
//
// Without stream the response is sent once the upload is recorded. With stream=true the
// response is application/x-ndjson: {"progress":N} lines, then a record or error line.
//
//	@Summary	Upload an attachment
//	@Tags		attachments
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		id		path		string	true	"capsule id"
//	@Param		file	formData	file	true	"attachment"
//	@Param		stream	query		bool	false	"stream NDJSON progress"
//	@Success	201		{object}	model.UploadRecord
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Failure	502		{object}	errorPayload
//	@Router		/capsules/{id}/uploads [post]
func UploadAttachment(svc service.CapsuleService, log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}

		ctx, cancel := context.WithCancel(c.UserContext())
		tr, err := svc.Attach(ctx, id, &model.LocalFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
		if err != nil {
			cancel()
			_ = f.Close()
			return writeServiceError(c, err)
		}

		if !c.QueryBool("stream") {
			defer cancel()
			defer f.Close()
			<-tr.Done()
			rec, err := tr.Result()
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(rec)
		}

		rid := requestIDFromCtx(c)
		c.Set(fiber.HeaderContentType, "application/x-ndjson")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Status(fiber.StatusOK)
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer cancel()
			defer f.Close()
			streamTransfer(w, tr, cancel, log.With("request_id", rid, "capsule_id", id))
		})
		return nil
	}
}

// streamTransfer writes progress lines until the transfer settles. A failed flush means the
// client is gone; the transfer is cancelled and drained so finalize still runs.
func streamTransfer(w *bufio.Writer, tr *upload.Transfer, cancel context.CancelFunc, log *slog.Logger) {
	enc := json.NewEncoder(w)
	gone := false
	send := func(ev streamEvent) {
		if gone {
			return
		}
		if err := enc.Encode(ev); err == nil {
			err = w.Flush()
			if err == nil {
				return
			}
		}
		gone = true
		cancel()
		log.Warn("upload stream client disconnected", "event", "stream_client_gone", "path", tr.Path)
	}

	for p := range tr.Progress() {
		send(streamEvent{Progress: &p})
	}
	<-tr.Done()

	rec, err := tr.Result()
	if err != nil {
		_, env := classify(err)
		send(streamEvent{Error: &env})
		return
	}
	send(streamEvent{Record: rec})
}

// ListAttachments lists the most recent attachments of a capsule, oldest first.
//
//	@Summary	List attachments
//	@Tags		attachments
//	@Produce	json
//	@Param		id		path	string	true	"capsule id"
//	@Param		limit	query	int		false	"max records"	default(10)
//	@Success	200		{array}	model.UploadRecord
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/capsules/{id}/uploads [get]
func ListAttachments(svc service.CapsuleService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultAttachmentLimit)))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}

		items, err := svc.ListAttachments(c.UserContext(), id, limit)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(items)
	}
}

// DeleteAttachment removes an attachment's record, then its blob.
//
//	@Summary	Delete an attachment
//	@Tags		attachments
//	@Param		id	path	string	true	"capsule id"
//	@Param		key	path	string	true	"attachment key"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Failure	502	{object}	errorPayload
//	@Router		/capsules/{id}/uploads/{key} [delete]
func DeleteAttachment(svc service.CapsuleService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c, "id")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		key, ok := parseID(c, "key")
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KEY", "invalid key format")
		}
		if err := svc.DeleteAttachment(c.UserContext(), id, key); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
