package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/linktally/linktally/internal/core/domain"
	"github.com/linktally/linktally/internal/core/ports"
)

type HTTPHandler struct {
	Service ports.LinkService
	Store   ports.LinkRepository
	Archive ports.LinkArchive // nil when no archive is configured
	BaseURL string
}

func NewHTTPHandler(service ports.LinkService, store ports.LinkRepository, archive ports.LinkArchive, baseURL string) *HTTPHandler {
	return &HTTPHandler{
		Service: service,
		Store:   store,
		Archive: archive,
		BaseURL: baseURL,
	}
}

type CreateShortLinkRequest struct {
	LongURL   string `json:"long_url" example:"https://example.com/page"`
	TTLSec    *int   `json:"ttl_sec,omitempty" example:"3600"`
	MaxClicks *int   `json:"max_clicks,omitempty" example:"100"`
}

type CreateShortLinkResponse struct {
	Code     string      `json:"code" example:"Ab3xY9q"`
	ShortURL string      `json:"short_url" example:"http://localhost:8080/Ab3xY9q"`
	Details  domain.Link `json:"details"`
}

type ResolveResponse struct {
	LongURL string `json:"long_url" example:"https://example.com/page"`
}

type ErrorResponse struct {
	Error string `json:"error" example:"Invalid input"`
}

// CreateShortLink godoc
// @Summary      Create a shortened link
// @Description  Creates a short code for a URL, optionally bounded by a TTL and a maximum click count.
// @Tags         links
// @Accept       json
// @Produce      json
// @Param        request  body      CreateShortLinkRequest  true  "Link data"
// @Success      201      {object}  CreateShortLinkResponse  "Link created"
// @Failure      400      {object}  ErrorResponse  "Validation error"
// @Failure      429      {object}  ErrorResponse  "Rate limited"
// @Failure      500      {object}  ErrorResponse  "Code allocation or store failure"
// @Router       /api/shorten [post]
func (h *HTTPHandler) CreateShortLink(c fiber.Ctx) error {
	var req CreateShortLinkRequest
	if err := c.Bind().Body(&req); err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "Invalid input"})
	}

	link, err := h.Service.CreateShortLink(c.Context(), req.LongURL, req.TTLSec, req.MaxClicks)
	if err != nil {
		return h.errorResponse(c, err)
	}

	return c.Status(201).JSON(CreateShortLinkResponse{
		Code:     link.Code,
		ShortURL: fmt.Sprintf("%s/%s", h.BaseURL, link.Code),
		Details:  link,
	})
}

// Redirect godoc
// @Summary      Redirect to the target URL
// @Description  Counted resolution: consumes one unit of click budget and credits the leaderboard. HEAD requests are uncounted previews.
// @Tags         links
// @Param        code  path      string  true  "Short code"  example(Ab3xY9q)
// @Success      301   {string}  string  "Permanent redirect"
// @Failure      404   {string}  string  "Link not found or expired"
// @Failure      410   {string}  string  "Click budget exhausted"
// @Router       /{code} [get]
func (h *HTTPHandler) Redirect(c fiber.Ctx) error {
	code := c.Params("code")
	countClick := c.Method() != fiber.MethodHead

	res, err := h.Service.Resolve(c.Context(), code, countClick)
	if err != nil {
		return h.errorResponse(c, err)
	}

	switch res.Status {
	case domain.StatusNotFound:
		return c.Status(404).SendString("Link not found or expired")
	case domain.StatusExhausted:
		return c.Status(410).SendString("Link click limit exceeded")
	}

	return c.Redirect().Status(fiber.StatusMovedPermanently).To(res.LongURL)
}

// ResolveCode godoc
// @Summary      Resolve a short code
// @Description  Returns the target URL as JSON. Pass count=false for an uncounted preview that leaves the click budget untouched.
// @Tags         links
// @Produce      json
// @Param        code   path      string  true   "Short code"
// @Param        count  query     bool    false  "Consume click budget (default true)"
// @Success      200    {object}  ResolveResponse
// @Failure      404    {object}  ErrorResponse  "Link not found or expired"
// @Failure      410    {object}  ErrorResponse  "Click budget exhausted"
// @Router       /api/resolve/{code} [get]
func (h *HTTPHandler) ResolveCode(c fiber.Ctx) error {
	code := c.Params("code")
	countClick := c.Query("count", "true") != "false"

	res, err := h.Service.Resolve(c.Context(), code, countClick)
	if err != nil {
		return h.errorResponse(c, err)
	}

	switch res.Status {
	case domain.StatusNotFound:
		return c.Status(404).JSON(ErrorResponse{Error: "Link not found or expired"})
	case domain.StatusExhausted:
		return c.Status(410).JSON(ErrorResponse{Error: "Link click limit exceeded"})
	}

	return c.JSON(ResolveResponse{LongURL: res.LongURL})
}

// TopLinks godoc
// @Summary      Click leaderboard
// @Description  Returns up to limit codes ordered by lifetime clicks, enriched with their current target URLs.
// @Tags         analytics
// @Produce      json
// @Param        limit  query     int  false  "Number of entries (1-100, default 10)"
// @Success      200    {array}   domain.TopLink
// @Router       /api/top [get]
func (h *HTTPHandler) TopLinks(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "10"))
	if err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "Invalid limit"})
	}

	links, err := h.Service.TopLinks(c.Context(), limit)
	if err != nil {
		return h.errorResponse(c, err)
	}
	if links == nil {
		links = []domain.TopLink{}
	}
	return c.JSON(links)
}

// LinkStats godoc
// @Summary      Lifetime stats for a code
// @Description  Stats outlive the URL mapping: an expired link reports expired=true, a code that never existed reports 404.
// @Tags         analytics
// @Produce      json
// @Param        code  path      string  true  "Short code"
// @Success      200   {object}  domain.Stats
// @Failure      404   {object}  ErrorResponse  "Code was never created"
// @Router       /api/stats/{code} [get]
func (h *HTTPHandler) LinkStats(c fiber.Ctx) error {
	stats, err := h.Service.LinkStats(c.Context(), c.Params("code"))
	if err != nil {
		return h.errorResponse(c, err)
	}
	return c.JSON(stats)
}

// ListLinks godoc
// @Summary      Recently created links
// @Description  Archive-backed listing, available only when a durable archive is configured.
// @Tags         links
// @Produce      json
// @Param        limit  query     int  false  "Number of entries (1-100, default 20)"
// @Success      200    {array}   domain.Link
// @Failure      404    {object}  ErrorResponse  "No archive configured"
// @Router       /api/links [get]
func (h *HTTPHandler) ListLinks(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "Invalid limit"})
	}

	links, err := h.Service.ListLinks(c.Context(), limit)
	if err != nil {
		return h.errorResponse(c, err)
	}
	if links == nil {
		links = []domain.Link{}
	}
	return c.JSON(links)
}

// Healthz godoc
// @Summary      Health check
// @Description  Pings the backing stores and reports ok or degraded.
// @Tags         ops
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /healthz [get]
func (h *HTTPHandler) Healthz(c fiber.Ctx) error {
	body := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	degraded := false

	if err := h.Store.Ping(c.Context()); err != nil {
		body["redis"] = err.Error()
		degraded = true
	} else {
		body["redis"] = "ok"
	}

	if h.Archive != nil {
		if err := h.Archive.Ping(c.Context()); err != nil {
			body["archive"] = err.Error()
			degraded = true
		} else {
			body["archive"] = "ok"
		}
	}

	if degraded {
		body["status"] = "degraded"
		return c.Status(500).JSON(body)
	}
	return c.JSON(body)
}

func (h *HTTPHandler) errorResponse(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(400).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(404).JSON(ErrorResponse{Error: "Not found"})
	case errors.Is(err, domain.ErrRateLimited):
		return c.Status(429).JSON(ErrorResponse{Error: "Too many requests"})
	case errors.Is(err, domain.ErrCodeGenExhausted):
		return c.Status(500).JSON(ErrorResponse{Error: "Failed to allocate short code"})
	default:
		return c.Status(500).JSON(ErrorResponse{Error: "An internal error occurred"})
	}
}
