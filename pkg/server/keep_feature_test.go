package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"

	"github.com/IlyushaZ/vinyl-store/pkg/model"
	"github.com/IlyushaZ/vinyl-store/pkg/server/handler"
)

type keepFeature struct {
	api          *api
	vinyls       map[string]model.Vinyl
	principals   map[string]model.Principal
	reservations map[string]uuid.UUID // by owner name
	last         *httptest.ResponseRecorder
}

func (k *keepFeature) reset(t *testing.T) {
	k.api = newAPI(t)
	k.vinyls = make(map[string]model.Vinyl)
	k.principals = make(map[string]model.Principal)
	k.reservations = make(map[string]uuid.UUID)
	k.last = nil
}

func (k *keepFeature) aVinylWithStock(title string, stock int) error {
	k.vinyls[title] = k.api.seed(title, stock)
	return nil
}

func (k *keepFeature) aPrincipal(role model.Role) func(string) error {
	return func(name string) error {
		k.principals[name] = model.Principal{ID: uuid.New(), Username: name, Role: role}
		return nil
	}
}

func (k *keepFeature) token(name string) (string, error) {
	p, ok := k.principals[name]
	if !ok {
		return "", fmt.Errorf("unknown principal %q", name)
	}

	return k.api.jwt.Sign(p, time.Hour)
}

func (k *keepFeature) keeps(name, title, confirm string) error {
	token, err := k.token(name)
	if err != nil {
		return err
	}

	v, ok := k.vinyls[title]
	if !ok {
		return fmt.Errorf("unknown vinyl %q", title)
	}

	k.last = k.api.do(http.MethodPost, "/reservations/keep/"+v.ID.String(), token, handler.KeepReq{ConfirmTitle: confirm})

	if k.last.Code == http.StatusCreated {
		res := decode[model.Reservation](k.api.t, k.last)
		k.reservations[name] = res.ID
	}

	return nil
}

func (k *keepFeature) movesReservation(name, owner, status string) error {
	token, err := k.token(name)
	if err != nil {
		return err
	}

	id, ok := k.reservations[owner]
	if !ok {
		return fmt.Errorf("%q has no reservation", owner)
	}

	k.last = k.api.do(http.MethodPut, "/reservations/"+id.String()+"/status", token, handler.TransitionReq{Status: status})
	return nil
}

func (k *keepFeature) responseStatusIs(status int) error {
	if k.last == nil {
		return fmt.Errorf("no request was made")
	}

	if k.last.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, k.last.Code, k.last.Body.String())
	}

	return nil
}

func (k *keepFeature) errorCodeIs(code string) error {
	got := decode[handler.ErrorResp](k.api.t, k.last).Error.Code
	if got != code {
		return fmt.Errorf("expected error code %q, got %q", code, got)
	}

	return nil
}

func (k *keepFeature) stockIs(title string, stock int) error {
	if got := k.api.store.Stock(k.vinyls[title].ID); got != stock {
		return fmt.Errorf("expected stock of %q to be %d, got %d", title, stock, got)
	}

	return nil
}

func (k *keepFeature) reservationIs(owner, status string) error {
	res, err := k.api.store.Reservations().FindByID(context.Background(), k.reservations[owner])
	if err != nil {
		return err
	}

	if string(res.Status) != status {
		return fmt.Errorf("expected reservation of %q to be %s, got %s", owner, status, res.Status)
	}

	return nil
}

func TestKeepFeature(t *testing.T) {
	k := &keepFeature{}

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
				k.reset(t)
				return ctx, nil
			})

			// Given steps
			sc.Step(`^a vinyl "([^"]*)" with stock (\d+)$`, k.aVinylWithStock)
			sc.Step(`^a user "([^"]*)"$`, k.aPrincipal(model.RoleUser))
			sc.Step(`^an admin "([^"]*)"$`, k.aPrincipal(model.RoleAdmin))

			// When steps
			sc.Step(`^"([^"]*)" keeps "([^"]*)" confirming "([^"]*)"$`, k.keeps)
			sc.Step(`^"([^"]*)" moves the reservation of "([^"]*)" to "([^"]*)"$`, k.movesReservation)

			// Then steps
			sc.Step(`^the response status is (\d+)$`, k.responseStatusIs)
			sc.Step(`^the error code is "([^"]*)"$`, k.errorCodeIs)
			sc.Step(`^the stock of "([^"]*)" is (\d+)$`, k.stockIs)
			sc.Step(`^the reservation of "([^"]*)" is "([^"]*)"$`, k.reservationIs)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"testdata/keep.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
