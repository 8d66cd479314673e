package gate

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/threadwork-cc/threadwork/internal/procexec"
)

// DefaultMaxDiagnostics caps the diagnostic lines kept per gate.
const DefaultMaxDiagnostics = 5

// checkFunc runs one gate. It returns an error only when the check could not
// be executed; a failing tool is reported through the Outcome.
type checkFunc func(ctx context.Context, e *env) (Outcome, error)

var defaultChecks = map[Kind]checkFunc{
	Typecheck: checkTypecheck,
	Lint:      checkLint,
	Tests:     checkTests,
	Build:     checkBuild,
	Security:  checkSecurity,
}

// env is what a check can see of the project.
type env struct {
	dir            string
	fsys           fs.FS
	exec           procexec.Runner
	maxDiagnostics int
	minCoverage    float64
}

func (e *env) exists(name string) bool {
	_, err := fs.Stat(e.fsys, name)
	return err == nil
}

// anyMatch reports whether a glob pattern matches a file in the project root.
func (e *env) anyMatch(pattern string) bool {
	matches, err := doublestar.Glob(e.fsys, pattern)
	return err == nil && len(matches) > 0
}

// nodeTool resolves a Node tool to a runnable command. A binary on PATH is
// run directly; a local install under node_modules/.bin goes through npx,
// which must be on PATH itself. ok is false when neither works.
func (e *env) nodeTool(name, args string) (command string, ok bool) {
	if e.exec.LookPath(name) {
		return name + " " + args, true
	}
	if e.exists("node_modules/.bin/"+name) && e.exec.LookPath("npx") {
		return "npx " + name + " " + args, true
	}
	return "", false
}

func notInstalled(kind Kind, tool string) Outcome {
	return skipped(kind, tool+" not installed")
}

// run executes command and builds an Outcome whose diagnostics are the
// output lines accepted by keep.
func (e *env) run(ctx context.Context, kind Kind, command string, keep func(string) bool) (Outcome, procexec.Result, error) {
	res, err := e.exec.Run(ctx, e.dir, command)
	if err != nil {
		return Outcome{Gate: kind, Command: command}, res, fmt.Errorf("%w: %s: %w", ErrCheckFault, kind, err)
	}
	o := Outcome{
		Gate:        kind,
		Passed:      res.Passed(),
		Command:     command,
		Diagnostics: e.diagnostics(res.Output(), keep),
	}
	if !o.Passed && len(o.Diagnostics) == 0 {
		o.Diagnostics = []string{fmt.Sprintf("`%s` exited with status %d", command, res.ExitCode)}
	}
	return o, res, nil
}

func (e *env) diagnostics(output string, keep func(string) bool) []string {
	limit := e.maxDiagnostics
	if limit <= 0 {
		limit = DefaultMaxDiagnostics
	}
	out := []string{}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !keep(line) {
			continue
		}
		out = append(out, line)
		if len(out) == limit {
			break
		}
	}
	return out
}

func containsAny(subs ...string) func(string) bool {
	return func(line string) bool {
		for _, s := range subs {
			if strings.Contains(line, s) {
				return true
			}
		}
		return false
	}
}

func hasPrefixAny(prefixes ...string) func(string) bool {
	return func(line string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(line, p) {
				return true
			}
		}
		return false
	}
}

// goSourceLine keeps compiler/vet style "file.go:line:col: msg" lines.
var goSourceLine = containsAny(".go:")

var coveragePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:branch|statement|line|coverage)`),
	regexp.MustCompile(`coverage:\s*(\d+(?:\.\d+)?)%\s+of\s+statements`),
}

// extractCoverage returns the first coverage figure found in test output.
func extractCoverage(output string) *float64 {
	for _, re := range coveragePatterns {
		m := re.FindStringSubmatch(output)
		if m == nil {
			continue
		}
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return &v
		}
	}
	return nil
}

func checkTypecheck(ctx context.Context, e *env) (Outcome, error) {
	switch {
	case e.exists("tsconfig.json"):
		command, ok := e.nodeTool("tsc", "--noEmit")
		if !ok {
			return notInstalled(Typecheck, "tsc"), nil
		}
		o, _, err := e.run(ctx, Typecheck, command, containsAny("error TS"))
		return o, err
	case e.exists("go.mod"):
		if !e.exec.LookPath("go") {
			return skipped(Typecheck, "go toolchain not installed"), nil
		}
		o, _, err := e.run(ctx, Typecheck, "go vet ./...", goSourceLine)
		return o, err
	}
	return skipped(Typecheck, "No tsconfig.json or go.mod found"), nil
}

func checkLint(ctx context.Context, e *env) (Outcome, error) {
	var (
		command string
		ok      bool
	)
	keep := containsAny("error", "Error")
	switch {
	case e.anyMatch("{.eslintrc,.eslintrc.*,eslint.config.*}"):
		if command, ok = e.nodeTool("eslint", ". --max-warnings 0 --format compact"); !ok {
			return notInstalled(Lint, "eslint"), nil
		}
	case e.anyMatch("{biome.json,biome.jsonc}"):
		if command, ok = e.nodeTool("biome", "check ."); !ok {
			return notInstalled(Lint, "biome"), nil
		}
	case e.anyMatch(".golangci.{yml,yaml,toml,json}") && e.exec.LookPath("golangci-lint"):
		command = "golangci-lint run ./..."
		keep = goSourceLine
	case e.exec.LookPath("oxlint"):
		command = "oxlint ."
	default:
		return skipped(Lint, "No linter configured"), nil
	}
	o, _, err := e.run(ctx, Lint, command, keep)
	return o, err
}

func checkTests(ctx context.Context, e *env) (Outcome, error) {
	var command string
	keep := containsAny("FAIL", "✗", "× ")
	switch {
	case e.exists("package.json"):
		pkg, err := readPackageJSON(e.fsys)
		tool := "npm"
		switch {
		case err == nil && pkg.Scripts["test"] == "":
			return skipped(Tests, "No test script in package.json"), nil
		case err == nil && pkg.hasDependency("jest"):
			tool = "jest"
			command, _ = e.nodeTool(tool, "--passWithNoTests")
		case err == nil && pkg.hasDependency("vitest"):
			tool = "vitest"
			command, _ = e.nodeTool(tool, "run")
		case e.exec.LookPath("npm"):
			command = "npm test -- --passWithNoTests"
		}
		if command == "" {
			return notInstalled(Tests, tool), nil
		}
	case e.exists("go.mod"):
		if !e.exec.LookPath("go") {
			return skipped(Tests, "go toolchain not installed"), nil
		}
		command = "go test -cover ./..."
		keep = hasPrefixAny("--- FAIL", "FAIL", "panic:")
	default:
		return skipped(Tests, "No package.json or go.mod found"), nil
	}

	o, res, err := e.run(ctx, Tests, command, keep)
	if err != nil {
		return o, err
	}
	o.Coverage = extractCoverage(res.Output())
	if e.minCoverage > 0 && o.Coverage != nil && *o.Coverage < e.minCoverage {
		o.Passed = false
		o.Diagnostics = append(o.Diagnostics,
			fmt.Sprintf("coverage %s%% is below the minimum of %s%%", formatPct(*o.Coverage), formatPct(e.minCoverage)))
	}
	return o, nil
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func checkBuild(ctx context.Context, e *env) (Outcome, error) {
	switch {
	case e.exists("package.json"):
		pkg, err := readPackageJSON(e.fsys)
		if err == nil && pkg.Scripts["build"] == "" {
			return skipped(Build, "No build script in package.json"), nil
		}
		if !e.exec.LookPath("npm") {
			return notInstalled(Build, "npm"), nil
		}
		o, _, err := e.run(ctx, Build, "npm run build", containsAny("error", "Error", "ERROR"))
		return o, err
	case e.exists("go.mod"):
		if !e.exec.LookPath("go") {
			return skipped(Build, "go toolchain not installed"), nil
		}
		o, _, err := e.run(ctx, Build, "go build ./...", goSourceLine)
		return o, err
	}
	return skipped(Build, "No package.json or go.mod found"), nil
}

func checkSecurity(ctx context.Context, e *env) (Outcome, error) {
	switch {
	case e.anyMatch("{package-lock.json,yarn.lock,pnpm-lock.yaml}"):
		if !e.exec.LookPath("npm") {
			return notInstalled(Security, "npm"), nil
		}
		o, res, err := e.run(ctx, Security, "npm audit --audit-level high --json", func(string) bool { return false })
		if err != nil {
			return o, err
		}
		if vulns := auditVulnerabilities(res.Stdout); len(vulns) > 0 {
			o.Diagnostics = e.diagnostics(strings.Join(vulns, "\n"), func(string) bool { return true })
		}
		return o, nil
	case e.exists("go.mod"):
		if !e.exec.LookPath("govulncheck") {
			return skipped(Security, "govulncheck not installed"), nil
		}
		o, _, err := e.run(ctx, Security, "govulncheck ./...", hasPrefixAny("Vulnerability #"))
		return o, err
	}
	return skipped(Security, "No lock file found"), nil
}
