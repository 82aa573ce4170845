package handlers

import (
	"purse/internal/services/gateway"
	"purse/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type GatewayHandler struct {
	registry *gateway.Registry
}

func NewGatewayHandler(registry *gateway.Registry) *GatewayHandler {
	return &GatewayHandler{registry: registry}
}

// ListGateways returns the gateways usable for funding a recharge. The
// wallet gateway is excluded: wallet funds cannot buy wallet funds.
func (h *GatewayHandler) ListGateways(c *fiber.Ctx) error {
	return response.Success(c, fiber.Map{
		"gateways": h.registry.List(gateway.WalletGatewayName),
	})
}

// ClientToken issues an opaque token for a client-side payment session with
// the named gateway.
func (h *GatewayHandler) ClientToken(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, err := h.registry.Get(name); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.Success(c, fiber.Map{
		"client_token": gateway.NewClientToken(),
	})
}
