package unconsole

import (
	"context"
	"fmt"
)

// Apply sanitizes root with the given config, without history, terminal output or
// metrics. It is the entry point for callers embedding the sanitizer in a build step.
func Apply(ctx context.Context, config Config) (Result, error) {
	if err := config.Validate(); err != nil {
		return Result{}, err
	}
	rules, err := config.Rules()
	if err != nil {
		return Result{}, fmt.Errorf("failed to build rules: %w", err)
	}
	return NewSanitizer(NewLocalFS(), rules, config.Options(), nil).SanitizeTree(ctx, config.Root)
}

// StripSource removes the default console statements from a single source text.
func StripSource(src string) (string, int) {
	return DefaultRules().Strip(src)
}
