package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the scenario context the registry steps use.
type TestContext interface {
	Do(method, path, actor string, body any) error
	GET(path string) error
	LastStatus() int
	GetResponseField(field string) (any, error)
	Expand(name string) string
	Address(actor string) string
	Remember(name string, domainID uint64)
	DomainID(name string) (uint64, error)
}

// RegisterSteps registers domain lifecycle steps. Names may use {tld} for the
// scenario's unique top-level label.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &registrySteps{tc: tc}

	ctx.Step(`^"([^"]*)" creates "([^"]*)" under the root$`, steps.createUnderRoot)
	ctx.Step(`^"([^"]*)" creates "([^"]*)" under "([^"]*)"$`, steps.createUnder)
	ctx.Step(`^an anonymous caller creates "([^"]*)" under the root$`, steps.createAnonymously)
	ctx.Step(`^"([^"]*)" approves "([^"]*)" for "([^"]*)"$`, steps.approve)
	ctx.Step(`^"([^"]*)" transfers "([^"]*)" from "([^"]*)" to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^"([^"]*)" sets "([^"]*)" as operator$`, steps.setOperator)
	ctx.Step(`^"([^"]*)" claims "([^"]*)"$`, steps.claim)
	ctx.Step(`^"([^"]*)" refreshes "([^"]*)"$`, steps.refresh)

	ctx.Step(`^the owner of "([^"]*)" should be "([^"]*)"$`, steps.ownerShouldBe)
	ctx.Step(`^the approved address of "([^"]*)" should be "([^"]*)"$`, steps.approvedShouldBe)
	ctx.Step(`^"([^"]*)" should own (\d+) domains?$`, steps.balanceShouldBe)
	ctx.Step(`^"([^"]*)" should resolve to the created domain$`, steps.nameResolves)
	ctx.Step(`^"([^"]*)" should not resolve$`, steps.nameDoesNotResolve)
}

type registrySteps struct {
	tc TestContext
}

func (s *registrySteps) create(actor string, parentID uint64, name, prefix string) error {
	body := map[string]any{"parent_id": parentID, "prefix": prefix}
	if err := s.tc.Do(http.MethodPost, "/domains", actor, body); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusCreated {
		return nil
	}
	value, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	domainID, ok := value.(float64)
	if !ok {
		return fmt.Errorf("id is not a number: %v", value)
	}
	s.tc.Remember(name, uint64(domainID))
	return nil
}

func (s *registrySteps) createUnderRoot(_ context.Context, actor, prefix string) error {
	prefix = s.tc.Expand(prefix)
	return s.create(actor, 0, prefix, prefix)
}

func (s *registrySteps) createUnder(_ context.Context, actor, prefix, parent string) error {
	parent = s.tc.Expand(parent)
	parentID, err := s.tc.DomainID(parent)
	if err != nil {
		return err
	}
	prefix = s.tc.Expand(prefix)
	return s.create(actor, parentID, prefix+"."+parent, prefix)
}

func (s *registrySteps) createAnonymously(_ context.Context, prefix string) error {
	prefix = s.tc.Expand(prefix)
	return s.create("", 0, prefix, prefix)
}

func (s *registrySteps) domainPath(name, suffix string) (string, error) {
	domainID, err := s.tc.DomainID(s.tc.Expand(name))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/domains/%d%s", domainID, suffix), nil
}

func (s *registrySteps) approve(_ context.Context, actor, approved, name string) error {
	path, err := s.domainPath(name, "/approve")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, path, actor, map[string]any{"to": s.tc.Address(approved)})
}

func (s *registrySteps) transfer(_ context.Context, actor, name, from, to string) error {
	path, err := s.domainPath(name, "/transfer")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, path, actor, map[string]any{
		"from": s.tc.Address(from),
		"to":   s.tc.Address(to),
	})
}

func (s *registrySteps) setOperator(_ context.Context, actor, operator string) error {
	return s.tc.Do(http.MethodPut, "/operators/"+s.tc.Address(operator), actor, map[string]any{"approved": true})
}

func (s *registrySteps) claim(_ context.Context, actor, name string) error {
	path, err := s.domainPath(name, "/claim")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, path, actor, nil)
}

func (s *registrySteps) refresh(_ context.Context, actor, name string) error {
	path, err := s.domainPath(name, "/refresh")
	if err != nil {
		return err
	}
	return s.tc.Do(http.MethodPost, path, actor, nil)
}

func (s *registrySteps) addressField(path, field string) (string, error) {
	if err := s.tc.GET(path); err != nil {
		return "", err
	}
	if s.tc.LastStatus() != http.StatusOK {
		return "", fmt.Errorf("GET %s returned %d", path, s.tc.LastStatus())
	}
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return "", err
	}
	return strings.ToLower(fmt.Sprint(value)), nil
}

func (s *registrySteps) ownerShouldBe(_ context.Context, name, actor string) error {
	path, err := s.domainPath(name, "/owner")
	if err != nil {
		return err
	}
	got, err := s.addressField(path, "owner")
	if err != nil {
		return err
	}
	if want := s.tc.Address(actor); got != want {
		return fmt.Errorf("expected owner %s (%s), got %s", actor, want, got)
	}
	return nil
}

func (s *registrySteps) approvedShouldBe(_ context.Context, name, actor string) error {
	path, err := s.domainPath(name, "/approved")
	if err != nil {
		return err
	}
	got, err := s.addressField(path, "approved")
	if err != nil {
		return err
	}
	if want := s.tc.Address(actor); got != want {
		return fmt.Errorf("expected approved %s (%s), got %s", actor, want, got)
	}
	return nil
}

func (s *registrySteps) balanceShouldBe(_ context.Context, actor string, count int) error {
	if err := s.tc.GET("/balances/" + s.tc.Address(actor)); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("balance")
	if err != nil {
		return err
	}
	if got, ok := value.(float64); !ok || int(got) != count {
		return fmt.Errorf("expected %s to own %d domains, got %v", actor, count, value)
	}
	return nil
}

func (s *registrySteps) nameResolves(_ context.Context, name string) error {
	name = s.tc.Expand(name)
	want, err := s.tc.DomainID(name)
	if err != nil {
		return err
	}
	if err := s.tc.GET("/names/" + url.PathEscape(name)); err != nil {
		return err
	}
	value, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	if got, ok := value.(float64); !ok || uint64(got) != want {
		return fmt.Errorf("expected %s to resolve to %d, got %v", name, want, value)
	}
	return nil
}

func (s *registrySteps) nameDoesNotResolve(_ context.Context, name string) error {
	if err := s.tc.GET("/names/" + url.PathEscape(s.tc.Expand(name))); err != nil {
		return err
	}
	if s.tc.LastStatus() != http.StatusNotFound {
		return fmt.Errorf("expected 404 for %s, got %d", name, s.tc.LastStatus())
	}
	return nil
}
