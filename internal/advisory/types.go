// Package advisory fetches Dependabot security alerts from GitHub.
//
// The types here mirror the REST wire format of the org-level alerts
// endpoint. Everything downstream works from these structs rather than
// raw JSON maps.
package advisory

import "strings"

// Alert is a single Dependabot alert as returned by
// GET /orgs/{org}/dependabot/alerts.
type Alert struct {
	Number                int                    `json:"number"`
	State                 string                 `json:"state"`
	URL                   string                 `json:"url"`
	HTMLURL               string                 `json:"html_url"`
	Repository            *Repository            `json:"repository,omitempty"`
	Dependency            Dependency             `json:"dependency"`
	SecurityAdvisory      *SecurityAdvisory      `json:"security_advisory,omitempty"`
	SecurityVulnerability *SecurityVulnerability `json:"security_vulnerability,omitempty"`
	CreatedAt             string                 `json:"created_at,omitempty"`
	UpdatedAt             string                 `json:"updated_at,omitempty"`
}

// Repository identifies the repo an alert belongs to.
type Repository struct {
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
}

// Dependency describes the vulnerable dependency.
type Dependency struct {
	Package      Package `json:"package"`
	ManifestPath string  `json:"manifest_path"`
	Scope        string  `json:"scope,omitempty"`
}

// Package names a package within an ecosystem.
type Package struct {
	Ecosystem string `json:"ecosystem"`
	Name      string `json:"name"`
}

// SecurityAdvisory carries the GHSA advisory attached to an alert.
type SecurityAdvisory struct {
	GHSAID          string          `json:"ghsa_id"`
	CVEID           string          `json:"cve_id,omitempty"`
	Summary         string          `json:"summary"`
	Description     string          `json:"description"`
	Severity        string          `json:"severity"`
	Identifiers     []Identifier    `json:"identifiers,omitempty"`
	References      []Reference     `json:"references,omitempty"`
	CVSS            *CVSS           `json:"cvss,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities,omitempty"`
}

// Identifier is an advisory identifier such as a CVE or GHSA ID.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Reference is an external link attached to an advisory.
type Reference struct {
	URL string `json:"url"`
}

// CVSS is the advisory's CVSS rating.
type CVSS struct {
	Score        float64 `json:"score"`
	VectorString string  `json:"vector_string,omitempty"`
}

// Vulnerability is one affected version range within an advisory.
type Vulnerability struct {
	Package                 *Package             `json:"package,omitempty"`
	VulnerableVersionRange  string               `json:"vulnerable_version_range,omitempty"`
	FirstPatchedVersion     *FirstPatchedVersion `json:"first_patched_version,omitempty"`
}

// FirstPatchedVersion names the earliest fixed release.
type FirstPatchedVersion struct {
	Identifier string `json:"identifier"`
}

// SecurityVulnerability is the alert-level vulnerability record. It
// duplicates part of the advisory but is scoped to the alert's package.
type SecurityVulnerability struct {
	Package                Package              `json:"package"`
	Severity               string               `json:"severity,omitempty"`
	VulnerableVersionRange string               `json:"vulnerable_version_range,omitempty"`
	FirstPatchedVersion    *FirstPatchedVersion `json:"first_patched_version,omitempty"`
}

// RepositoryFullName returns the owner/name of the alert's repository.
// The repository object can be absent on some API responses, so this
// falls back to parsing the alert URLs before giving up with a sentinel.
func (a *Alert) RepositoryFullName() string {
	if a.Repository != nil && a.Repository.FullName != "" {
		return a.Repository.FullName
	}
	if parts := strings.Split(a.HTMLURL, "/"); len(parts) > 0 {
		for i, p := range parts {
			if p == "github.com" && i+2 < len(parts) {
				return parts[i+1] + "/" + parts[i+2]
			}
		}
	}
	if _, after, ok := strings.Cut(a.URL, "/repos/"); ok {
		segs := strings.Split(after, "/")
		if len(segs) >= 2 {
			return segs[0] + "/" + segs[1]
		}
	}
	return "unknown/unknown"
}

// RepositoryHTMLURL returns the repository's web URL, or "" if the
// alert carried no repository object.
func (a *Alert) RepositoryHTMLURL() string {
	if a.Repository != nil {
		return a.Repository.HTMLURL
	}
	return ""
}
