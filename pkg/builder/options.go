package builder

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// configureRule contributes extra ./configure flags to every build whose
// version satisfies its constraint.
type configureRule struct {
	when  *semver.Constraints
	flags []string
}

// The rules are applied in order, after the base flags. Adding support for a
// new release series should only ever touch this table.
var configureRules = []configureRule{
	// Python 2 runtimes are wide-unicode (UCS-4) builds; narrow builds
	// would break wheels compiled against the cp27mu ABI.
	{when: mustConstraint("~2.7"), flags: []string{"--enable-unicode=ucs4"}},
	// Profile guided optimization is currently switched off for 3.8+
	// because it roughly doubles the build time. The rule stays so the
	// flags have a place to come back to.
	{when: mustConstraint(">= 3.8"), flags: nil},
	// Only safe on 3.11+; older releases still need the test modules
	// present during make install.
	{when: mustConstraint("~3.11"), flags: []string{"--disable-test-modules"}},
}

func mustConstraint(expr string) *semver.Constraints {
	parsed, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}

	return parsed
}

// configureOptions returns the ./configure flags for a version: the base
// flags shared by every build first, then the flags of each matching rule in
// table order.
func configureOptions(version *semver.Version, installDir string) []string {
	opts := []string{
		// Fail on unrecognized options instead of silently ignoring them.
		"--enable-option-checking=fatal",
		fmt.Sprintf("--prefix=%s", installDir),
		// The buildpack installs pip itself, at app build time.
		"--without-ensurepip",
		// Build pyexpat against the stack's expat rather than the vendored copy.
		"--with-system-expat",
	}

	for _, rule := range configureRules {
		if rule.when.Check(version) {
			opts = append(opts, rule.flags...)
		}
	}

	return opts
}
