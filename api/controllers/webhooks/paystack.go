package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/splitpay-backend/api/responses"
	paystackwebhook "github.com/angelmondragon/splitpay-backend/internal/webhooks/paystack"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
	"github.com/angelmondragon/splitpay-backend/pkg/logger"
	"github.com/angelmondragon/splitpay-backend/pkg/paystack"
)

// PaystackConsumer scopes webhook delivery claims in the idempotency store.
const PaystackConsumer = "paystack-webhook"

const maxWebhookBody int64 = 1 << 20

type PaystackWebhookService interface {
	HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error
}

type deliveryGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, id string) (bool, error)
	Release(ctx context.Context, consumer, id string) error
}

type signingKey interface {
	SecretKey() string
}

// PaystackWebhook verifies, deduplicates and dispatches Paystack deliveries.
func PaystackWebhook(svc PaystackWebhookService, key signingKey, guard deliveryGuard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if key == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !paystack.VerifySignature(key.SecretKey(), payload, r.Header.Get(paystack.SignatureHeader)) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event paystack.WebhookEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload"))
			return
		}

		deliveryKey, err := paystackwebhook.DeliveryKey(&event)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if deliveryKey == "" {
			// Acknowledged so Paystack stops redelivering events we do not handle.
			responses.WriteSuccess(w, nil)
			return
		}

		alreadyProcessed, err := guard.CheckAndMarkProcessed(ctx, PaystackConsumer, deliveryKey)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			if logg != nil {
				logg.Info(logg.WithField(ctx, "delivery_key", deliveryKey), "duplicate paystack delivery skipped")
			}
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, &event); err != nil {
			if releaseErr := guard.Release(ctx, PaystackConsumer, deliveryKey); releaseErr != nil && logg != nil {
				logg.Error(ctx, "failed to release webhook claim", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(ctx, "delivery_key", deliveryKey), "paystack event processed")
		}
		responses.WriteSuccess(w, nil)
	}
}
