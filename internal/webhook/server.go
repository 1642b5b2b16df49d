// Package webhook serves the Stripe webhook endpoint and the health route.
package webhook

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stripe/stripe-go/v81"
	stripewebhook "github.com/stripe/stripe-go/v81/webhook"

	"lifecoach/internal/logging"
)

// EventHandler applies a verified Stripe event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

// Server is the HTTP side of the bot: a health route and the Stripe webhook.
type Server struct {
	echo    *echo.Echo
	billing EventHandler
	secret  string
	addr    string
}

func NewServer(addr, webhookSecret string, billing EventHandler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:    e,
		billing: billing,
		secret:  webhookSecret,
		addr:    addr,
	}

	e.GET("/", s.handleHome)
	e.POST("/webhook", s.handleStripeWebhook)

	return s
}

func (s *Server) handleHome(c echo.Context) error {
	return c.String(http.StatusOK, "Bot is running")
}

func (s *Server) handleStripeWebhook(c echo.Context) error {
	log := logging.WithComponent("webhook")

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		log.WithError(err).Error("invalid payload")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid payload"})
	}

	event, err := stripewebhook.ConstructEventWithOptions(
		payload,
		c.Request().Header.Get("Stripe-Signature"),
		s.secret,
		stripewebhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		log.WithError(err).Error("invalid signature")
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid signature"})
	}

	log.WithField("event_type", event.Type).Info("received stripe event")

	// Non-2xx makes Stripe retry the delivery later.
	if err := s.billing.HandleEvent(c.Request().Context(), event); err != nil {
		log.WithError(err).WithField("event_type", event.Type).Error("failed to apply event")
		return c.NoContent(http.StatusInternalServerError)
	}

	return c.NoContent(http.StatusOK)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	err := s.echo.Start(s.addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
