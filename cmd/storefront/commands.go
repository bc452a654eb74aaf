package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/router"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/web"
)

type command func(ctx context.Context, e *env, args []string, out io.Writer) error

var commands = map[string]command{
	"login":    authCommand("login", false),
	"signup":   authCommand("signup", true),
	"products": showCommand(router.PathProducts),
	"cart":     showCommand(router.PathCart),
	"add":      cartCommand((*app.App).AddToCart, router.PathProducts),
	"remove":   cartCommand((*app.App).RemoveFromCart, router.PathCart),
	"checkout": checkoutCommand,
	"logout":   logoutCommand,
	"status":   statusCommand,
	"serve":    serveCommand,
}

func authCommand(name string, signup bool) command {
	return func(ctx context.Context, e *env, args []string, out io.Writer) error {
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		username := fs.String("username", "", "account name")
		password := fs.String("password", "", "account password")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}

		if _, err := e.app.Navigate(ctx, router.PathLogin); err != nil {
			return err
		}
		if signup {
			if _, err := e.app.ToggleAuthMode(); err != nil {
				return err
			}
		}

		err := e.app.Login(ctx, *username, *password)
		printNotifications(out, e.app.Notifications())
		if err != nil {
			if v := e.app.View(); v.Login != nil && v.Login.Error != "" {
				return errors.New(v.Login.Error)
			}
			return err
		}
		printView(out, e.app.View())
		return nil
	}
}

func showCommand(p string) command {
	return func(ctx context.Context, e *env, args []string, out io.Writer) error {
		v, err := e.app.Navigate(ctx, p)
		printNotifications(out, e.app.Notifications())
		if err != nil {
			return err
		}
		printView(out, v)
		return nil
	}
}

// cartCommand runs a cart mutation from the view it is offered on.
func cartCommand(op func(*app.App, context.Context, int64) error, from string) command {
	return func(ctx context.Context, e *env, args []string, out io.Writer) error {
		if len(args) != 1 {
			return fmt.Errorf("%w: expected one product id", errUsage)
		}
		productID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || productID <= 0 {
			return fmt.Errorf("invalid product id %q", args[0])
		}

		if _, err := e.app.Navigate(ctx, from); err != nil {
			return err
		}
		// drop the navigation's notifications; only the action's are shown
		_ = e.app.Notifications()

		err = op(e.app, ctx, productID)
		printNotifications(out, e.app.Notifications())
		if err != nil {
			return err
		}
		printView(out, e.app.View())
		return nil
	}
}

func checkoutCommand(ctx context.Context, e *env, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fields := map[string]*string{
		domain.FieldFullName:   fs.String("full-name", "", "recipient name"),
		domain.FieldStreet:     fs.String("street", "", "street address"),
		domain.FieldCity:       fs.String("city", "", "city"),
		domain.FieldState:      fs.String("state", "", "state or region"),
		domain.FieldPostalCode: fs.String("postal-code", "", "postal code"),
		domain.FieldPhone:      fs.String("phone", "", "contact phone"),
	}
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	v, err := e.app.Navigate(ctx, router.PathCheckout)
	if err != nil {
		printNotifications(out, e.app.Notifications())
		return err
	}
	if v.Checkout == nil {
		// the flow aborted and sent us elsewhere
		printNotifications(out, e.app.Notifications())
		printView(out, v)
		return errors.New("checkout not available")
	}

	for _, name := range domain.ShippingFields {
		if err := e.app.SetShippingField(name, *fields[name]); err != nil {
			return err
		}
	}

	err = e.app.PlaceOrder(ctx)
	printNotifications(out, e.app.Notifications())
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		printView(out, e.app.View())
	}
	return err
}

func logoutCommand(ctx context.Context, e *env, _ []string, out io.Writer) error {
	if err := e.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "logged out")
	return nil
}

func statusCommand(ctx context.Context, e *env, _ []string, out io.Writer) error {
	st := e.app.State()
	fmt.Fprintf(out, "authenticated: %t\n", st.Authenticated)
	fmt.Fprintf(out, "cart items:    %d\n", st.Cart.Count())

	claims, err := e.app.Claims(ctx)
	switch {
	case errors.Is(err, session.ErrOpaqueToken):
		fmt.Fprintln(out, "token:         opaque")
		return nil
	case err != nil:
		return nil
	}
	if claims.Subject != "" {
		fmt.Fprintf(out, "user:          %s\n", claims.Subject)
	}
	if !claims.ExpiresAt.IsZero() {
		note := ""
		if claims.Expired(time.Now()) {
			note = " (expired)"
		}
		fmt.Fprintf(out, "expires:       %s%s\n", claims.ExpiresAt.Format(time.RFC3339), note)
	}
	return nil
}

func serveCommand(ctx context.Context, e *env, _ []string, _ io.Writer) error {
	handler := web.NewHandler(e.app, e.cfg.RequestTimeout, e.log.Named("web"))

	srv := &http.Server{
		Addr:         ":" + e.cfg.HTTPPort,
		Handler:      web.NewRouter(handler, e.cfg.RequestTimeout, e.log.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: e.cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info("view server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.log.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	e.log.Info("server exited")
	return nil
}
