package gate

import (
	"encoding/json"
	"io/fs"
	"sort"
)

// packageJSON is the subset of package.json the checks look at.
type packageJSON struct {
	Scripts         map[string]string `json:"scripts"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func readPackageJSON(fsys fs.FS) (*packageJSON, error) {
	data, err := fs.ReadFile(fsys, "package.json")
	if err != nil {
		return nil, err
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (p *packageJSON) hasDependency(name string) bool {
	_, dev := p.DevDependencies[name]
	_, prod := p.Dependencies[name]
	return dev || prod
}

// auditVulnerabilities lists high and critical advisories from
// `npm audit --json` output as "name (severity)", sorted by name.
func auditVulnerabilities(output string) []string {
	var report struct {
		Vulnerabilities map[string]struct {
			Severity string `json:"severity"`
		} `json:"vulnerabilities"`
	}
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		return nil
	}
	var out []string
	for name, v := range report.Vulnerabilities {
		if v.Severity == "high" || v.Severity == "critical" {
			out = append(out, name+" ("+v.Severity+")")
		}
	}
	sort.Strings(out)
	return out
}
