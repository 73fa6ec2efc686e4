package converter

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/kylycht/curconv/model"
	"github.com/kylycht/curconv/service"
	"github.com/kylycht/curconv/service/convert"
	"github.com/rs/zerolog/log"
)

func New(svc *convert.Service) *Converter {
	return &Converter{svc: svc}
}

type Converter struct {
	svc *convert.Service
}

// Convert handles GET /convert.
// Query params: amount (required number), input_currency (required
// code or symbol), output_currency (optional, empty = all known),
// converter (optional method override, "xe" or "oer").
func (c *Converter) Convert(ctx *fiber.Ctx) error {
	rawAmount := ctx.Query("amount")
	if rawAmount == "" {
		return respondError(ctx, fmt.Errorf("%w: missing required argument: \"amount\"", service.ErrInvalidInput))
	}

	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil {
		return respondError(ctx, fmt.Errorf("%w: given amount is not a valid number", service.ErrInvalidInput))
	}

	input := ctx.Query("input_currency")
	if input == "" {
		return respondError(ctx, fmt.Errorf("%w: missing required argument: \"input_currency\"", service.ErrInvalidInput))
	}

	req := model.Request{
		Amount: amount,
		From:   input,
		To:     ctx.Query("output_currency"),
	}

	log.Debug().Str("from", req.From).Str("to", req.To).Float64("amount", req.Amount).Msg("converting")

	result, err := c.svc.Convert(ctx.Context(), req, ctx.Query("converter"))
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(result)
}

// Currencies handles GET /currencies and lists every known currency
func (c *Converter) Currencies(ctx *fiber.Ctx) error {
	currencies, err := c.svc.Currencies(ctx.Context())
	if err != nil {
		return respondError(ctx, err)
	}

	return ctx.JSON(currencies)
}

// respondError maps the error taxonomy onto transport status codes:
// bad input is the client's problem, missing data and connectivity
// are ours.
func respondError(ctx *fiber.Ctx, err error) error {
	var unsupported *service.UnsupportedError

	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return ctx.Status(fiber.StatusBadRequest).SendString("Request Error: " + err.Error())

	case errors.As(err, &unsupported):
		return ctx.Status(fiber.StatusBadRequest).
			SendString("Request Error: given input currency is not a valid currency code or symbol")

	case errors.Is(err, service.ErrNoData):
		return ctx.Status(fiber.StatusInternalServerError).
			SendString("Internal Server Error: no currencies data available")

	default:
		log.Error().Err(err).Msg("conversion failed")
		return ctx.Status(fiber.StatusInternalServerError).
			SendString("Internal Server Error: conversion failed")
	}
}
