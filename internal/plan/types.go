// Package plan turns raw Dependabot alerts into a per-repository
// remediation plan and persists it as a JSON artifact.
package plan

// ManifestRef points at a manifest file that declares the vulnerable
// dependency, with its dependency scope when known.
type ManifestRef struct {
	Path  string `json:"path"`
	Scope string `json:"scope,omitempty"`
}

// AlertRef is an enriched reference back to one underlying alert.
// Alerts for the same package can differ in severity, identifiers and
// affected ranges, so each keeps its own metadata.
type AlertRef struct {
	Number                 int      `json:"number"`
	HTMLURL                string   `json:"html_url"`
	Summary                string   `json:"summary,omitempty"`
	GHSAs                  []string `json:"ghsas"`
	CVEs                   []string `json:"cves"`
	Severity               string   `json:"severity,omitempty"`
	VulnerableVersionRange string   `json:"vulnerable_version_range,omitempty"`
}

// PackageSummary is the remediation unit: one vulnerable package in one
// repository, folded across all of its alerts.
type PackageSummary struct {
	Ecosystem        string        `json:"ecosystem"`
	Package          string        `json:"package"`
	Manifests        []ManifestRef `json:"manifests"`
	CurrentVersion   string        `json:"current_version,omitempty"`
	TargetVersion    string        `json:"target_version,omitempty"`
	FixVersions      []string      `json:"fix_versions"`
	Severity         string        `json:"severity,omitempty"`
	HighestCVSS      float64       `json:"highest_cvss,omitempty"`
	GHSAs            []string      `json:"ghsas"`
	CVEs             []string      `json:"cves"`
	VulnerableRanges []string      `json:"vulnerable_ranges"`
	Summary          string        `json:"summary,omitempty"`
	References       []string      `json:"references"`
	Alerts           []AlertRef    `json:"alerts"`
}

// RepositoryPlan groups the package summaries of one repository.
type RepositoryPlan struct {
	Name           string           `json:"name"`
	HTMLURL        string           `json:"html_url,omitempty"`
	SecurityAlerts []PackageSummary `json:"security_alerts"`
}

// OrgPlan is the top-level remediation plan for an organization.
type OrgPlan struct {
	Org          string           `json:"org"`
	Source       string           `json:"source"`
	State        string           `json:"state"`
	Repositories []RepositoryPlan `json:"repositories"`
}

// PlanSource identifies where the plan's alerts came from.
const PlanSource = "github_dependabot_org_alerts"

// WorstSeverity returns the highest severity across the repository's
// package summaries, or "" when none carry one.
func (r *RepositoryPlan) WorstSeverity() string {
	severities := make([]string, 0, len(r.SecurityAlerts))
	for _, pkg := range r.SecurityAlerts {
		if pkg.Severity != "" {
			severities = append(severities, pkg.Severity)
		}
	}
	return worstSeverity(severities)
}

// AlertCount returns the number of package summaries across all
// repositories.
func (p *OrgPlan) AlertCount() int {
	n := 0
	for _, repo := range p.Repositories {
		n += len(repo.SecurityAlerts)
	}
	return n
}

// Repository returns the plan for the named repository, or nil.
func (p *OrgPlan) Repository(name string) *RepositoryPlan {
	for i := range p.Repositories {
		if p.Repositories[i].Name == name {
			return &p.Repositories[i]
		}
	}
	return nil
}
