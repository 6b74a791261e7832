package e2e

import (
	"context"

	"github.com/cucumber/godog"

	"namereg/e2e/steps/common"
	"namereg/e2e/steps/registry"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		tc.Reset()
		return ctx, nil
	})

	common.RegisterSteps(ctx, tc)
	registry.RegisterSteps(ctx, tc)
}
