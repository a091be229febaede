package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/karloscodes/cartridge"

	"navlens/internal/collector"
	"navlens/internal/visitors"
)

// CollectHandler serves the public ingestion endpoint. Browsers call it
// via GET (sendBeacon-compatible query strings) or POST (form body, used
// for errors and oversized payloads); the parameters are identical either
// way. First contact answers 201 with the bare cache token as the body,
// replayed requests answer 204.
func CollectHandler(ctx *cartridge.Context) error {
	if ctx.Method() == http.MethodOptions {
		return ctx.SendStatus(http.StatusNoContent)
	}

	input := collector.Input{
		SiteID:     getPayload(ctx.Ctx, "id"),
		CacheToken: getPayload(ctx.Ctx, "cache"),
		Route:      getPayload(ctx.Ctx, "route"),
		Origin:     ctx.Get("Origin"),
		Href:       getPayload(ctx.Ctx, "href"),

		Title:    getPayload(ctx.Ctx, "title"),
		Referrer: getPayload(ctx.Ctx, "ref"),

		CLS:  getPayload(ctx.Ctx, "cls"),
		FCP:  getPayload(ctx.Ctx, "fcp"),
		FID:  getPayload(ctx.Ctx, "fid"),
		LCP:  getPayload(ctx.Ctx, "lcp"),
		TTFB: getPayload(ctx.Ctx, "ttfb"),

		ErrorType:    getPayload(ctx.Ctx, "type"),
		ErrorName:    getPayload(ctx.Ctx, "name"),
		ErrorMessage: getPayload(ctx.Ctx, "msg"),
		ErrorStack:   getPayload(ctx.Ctx, "stack"),

		Signals: visitors.Signals{
			UserAgent:   ctx.Get("User-Agent"),
			IPAddress:   getClientIP(ctx.Ctx),
			FullVersion: getPayload(ctx.Ctx, "uafv"),
			DeviceModel: getPayload(ctx.Ctx, "device"),
			CPUArch:     getPayload(ctx.Ctx, "arch"),
			Screen:      getPayload(ctx.Ctx, "screen"),
			Language:    getPayload(ctx.Ctx, "lang"),
			CanvasHash:  getPayload(ctx.Ctx, "cvsfp"),
		},
	}

	outcome, err := collector.Collect(ctx.Context(), ctx.DBManager, ctx.Logger, input)
	if err != nil {
		var reqErr *collector.RequestError
		if errors.As(err, &reqErr) {
			return ctx.Status(http.StatusBadRequest).SendString(reqErr.Reason)
		}
		if errors.Is(err, collector.ErrBotRejected) {
			return ctx.Status(http.StatusForbidden).SendString("forbidden")
		}
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "busy") {
			return ctx.SendStatus(599) // custom status code
		}
		ctx.Logger.Error("Failed to collect event", slog.Any("error", err))
		return ctx.Status(http.StatusInternalServerError).SendString("collection failed")
	}

	if outcome.State == collector.StateCached {
		return ctx.SendStatus(http.StatusNoContent)
	}
	return ctx.Status(http.StatusCreated).SendString(outcome.Token)
}
