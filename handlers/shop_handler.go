package handlers

import (
	"github.com/anjiri1684/course_academy/services"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListShopProducts(c *fiber.Ctx) error {
	products, err := h.catalog.ListShopProducts(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(products)
}

func (h *Handler) GetShopProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	product, err := h.catalog.GetShopProduct(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(product)
}

func (h *Handler) CreateShopProduct(c *fiber.Ctx) error {
	var req services.ShopProductInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	product, err := h.catalog.SaveShopProduct(c.UserContext(), nil, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *Handler) UpdateShopProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	var req services.ShopProductInput
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	product, err := h.catalog.SaveShopProduct(c.UserContext(), &id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(product)
}

func (h *Handler) DeleteShopProduct(c *fiber.Ctx) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.catalog.DeleteShopProduct(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}
