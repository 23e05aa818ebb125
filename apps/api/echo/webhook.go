package echoapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/billing"
	"github.com/trezcool/scholarlypay/core/payment"
	paystacksvc "github.com/trezcool/scholarlypay/services/paystack"
)

const signatureHeader = "X-Paystack-Signature"

type webhookApi struct {
	conf   *core.Config
	engine *billing.Engine
	logger core.Logger
}

func registerWebhookAPI(g *echo.Group, deps ServerDeps) {
	api := webhookApi{
		conf:   deps.Conf,
		engine: deps.Engine,
		logger: deps.Logger,
	}
	g.POST("/webhooks/paystack", api.paystack)
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
	} `json:"data"`
}

// paystack handles gateway callbacks. The gateway retries deliveries, so a
// reference that is unknown, expired or already settled is acknowledged with
// 200 rather than erroring the retry loop.
func (api *webhookApi) paystack(ctx echo.Context) error {
	body, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}
	if !paystacksvc.ValidSignature(body, ctx.Request().Header.Get(signatureHeader), api.conf.Paystack.SecretKey) {
		return errUnauthorized
	}

	var event paystackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "unmarshalling webhook event")
	}
	if event.Event != "charge.success" || event.Data.Reference == "" {
		return ctx.NoContent(http.StatusOK)
	}

	if _, err := api.engine.Confirm(ctx.Request().Context(), event.Data.Reference); err != nil {
		switch errors.Cause(err) {
		case billing.ErrUnknownReference, billing.ErrSettlementExpired, payment.ErrDuplicateReference:
			// nothing to reconcile (anymore); ack the delivery
		default:
			api.logger.Error(fmt.Sprintf("webhook %s: confirming settlement: %v", event.Data.Reference, err), err)
			return errors.Wrap(err, "confirming settlement")
		}
	}
	return ctx.NoContent(http.StatusOK)
}
