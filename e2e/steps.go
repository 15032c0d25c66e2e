package e2e

import (
	"github.com/cucumber/godog"

	"formcheck/e2e/steps/field"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	field.RegisterSteps(ctx, tc)
}
