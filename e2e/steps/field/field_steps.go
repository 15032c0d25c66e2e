package field

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"formcheck/internal/fieldcheck/models"
)

const settleTimeout = 2 * time.Second

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	RegisterField(name string, cfg models.FieldConfig) error
	Type(field, value string) error
	SwitchContext(field, domain string) error
	Recheck(field string) error
	Advance(d time.Duration)
	Take(value, domain string)
	Free(value, domain string)
	Stall(value string)
	Queries() []string
	States(field string) []models.ValidationState
	AwaitState(field string, want models.ValidationState, timeout time.Duration) error
	HoldsState(field string, want models.ValidationState, d time.Duration) error
}

// RegisterSteps registers field validation step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &fieldSteps{tc: tc}

	// Setup steps
	ctx.Step(`^a username field "([^"]*)"$`, steps.usernameField)
	ctx.Step(`^a username field "([^"]*)" on domains "([^"]*)"$`, steps.usernameFieldOnDomains)
	ctx.Step(`^an email field "([^"]*)"$`, steps.emailField)
	ctx.Step(`^"([^"]*)" is registered$`, steps.taken)
	ctx.Step(`^"([^"]*)" is registered on "([^"]*)"$`, steps.takenOn)
	ctx.Step(`^"([^"]*)" is released$`, steps.released)
	ctx.Step(`^the directory never answers for "([^"]*)"$`, steps.stall)

	// Input steps
	ctx.Step(`^I type "([^"]*)" into "([^"]*)"$`, steps.typeInto)
	ctx.Step(`^I switch "([^"]*)" to domain "([^"]*)"$`, steps.switchDomain)
	ctx.Step(`^I ask to recheck "([^"]*)"$`, steps.recheck)
	ctx.Step(`^(\d+)ms pass$`, steps.advance)

	// Assertion steps
	ctx.Step(`^"([^"]*)" should be "([^"]*)"$`, steps.shouldBe)
	ctx.Step(`^"([^"]*)" should stay "([^"]*)"$`, steps.shouldStay)
	ctx.Step(`^the directory should have been asked about "([^"]*)"$`, steps.shouldHaveQueried)
	ctx.Step(`^the directory should not have been asked anything$`, steps.shouldNotHaveQueried)
	ctx.Step(`^"([^"]*)" should never have been "([^"]*)"$`, steps.neverBeen)
}

type fieldSteps struct {
	tc TestContext
}

func (s *fieldSteps) usernameField(ctx context.Context, name string) error {
	return s.tc.RegisterField(name, models.DefaultIdentifierField(""))
}

func (s *fieldSteps) usernameFieldOnDomains(ctx context.Context, name, domains string) error {
	list := strings.Split(domains, ",")
	cfg := models.DefaultIdentifierField(list[0])
	cfg.Contexts = list
	return s.tc.RegisterField(name, cfg)
}

func (s *fieldSteps) emailField(ctx context.Context, name string) error {
	return s.tc.RegisterField(name, models.DefaultEmailField())
}

func (s *fieldSteps) taken(ctx context.Context, value string) error {
	s.tc.Take(value, "")
	return nil
}

func (s *fieldSteps) takenOn(ctx context.Context, value, domain string) error {
	s.tc.Take(value, domain)
	return nil
}

func (s *fieldSteps) released(ctx context.Context, value string) error {
	s.tc.Free(value, "")
	return nil
}

func (s *fieldSteps) stall(ctx context.Context, value string) error {
	s.tc.Stall(value)
	return nil
}

func (s *fieldSteps) typeInto(ctx context.Context, value, field string) error {
	return s.tc.Type(field, value)
}

func (s *fieldSteps) switchDomain(ctx context.Context, field, domain string) error {
	return s.tc.SwitchContext(field, domain)
}

func (s *fieldSteps) recheck(ctx context.Context, field string) error {
	return s.tc.Recheck(field)
}

func (s *fieldSteps) advance(ctx context.Context, ms int) error {
	s.tc.Advance(time.Duration(ms) * time.Millisecond)
	return nil
}

func (s *fieldSteps) shouldBe(ctx context.Context, field, state string) error {
	want := models.ValidationState(state)
	if !want.IsValid() {
		return fmt.Errorf("unknown state %q", state)
	}
	return s.tc.AwaitState(field, want, settleTimeout)
}

func (s *fieldSteps) shouldStay(ctx context.Context, field, state string) error {
	return s.tc.HoldsState(field, models.ValidationState(state), 50*time.Millisecond)
}

func (s *fieldSteps) shouldHaveQueried(ctx context.Context, values string) error {
	want := strings.Split(values, ",")
	got := s.tc.Queries()
	if !slices.Equal(want, got) {
		return fmt.Errorf("directory was asked %v, expected %v", got, want)
	}
	return nil
}

func (s *fieldSteps) shouldNotHaveQueried(ctx context.Context) error {
	time.Sleep(20 * time.Millisecond)
	if got := s.tc.Queries(); len(got) > 0 {
		return fmt.Errorf("directory was asked %v", got)
	}
	return nil
}

func (s *fieldSteps) neverBeen(ctx context.Context, field, state string) error {
	if slices.Contains(s.tc.States(field), models.ValidationState(state)) {
		return fmt.Errorf("field %s passed through %s", field, state)
	}
	return nil
}
