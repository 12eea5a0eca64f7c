package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/packagebot/internal/advisory"
)

func lodashAlert(number int, severity, cve, fixVersion string) advisory.Alert {
	return advisory.Alert{
		Number:  number,
		State:   "open",
		HTMLURL: "https://github.com/acme/web-app/security/dependabot/1",
		Repository: &advisory.Repository{
			FullName: "acme/web-app",
			HTMLURL:  "https://github.com/acme/web-app",
		},
		Dependency: advisory.Dependency{
			Package:      advisory.Package{Ecosystem: "npm", Name: "lodash"},
			ManifestPath: "package.json",
			Scope:        "runtime",
		},
		SecurityAdvisory: &advisory.SecurityAdvisory{
			Summary:  "Prototype pollution in lodash. Attackers can modify object prototypes.",
			Severity: severity,
			Identifiers: []advisory.Identifier{
				{Type: "GHSA", Value: "GHSA-jf85-cpcp-j695"},
				{Type: "CVE", Value: cve},
			},
			CVSS: &advisory.CVSS{Score: 7.4},
			References: []advisory.Reference{
				{URL: "https://nvd.nist.gov/vuln/detail/" + cve},
			},
			Vulnerabilities: []advisory.Vulnerability{
				{
					VulnerableVersionRange: "< " + fixVersion,
					FirstPatchedVersion:    &advisory.FirstPatchedVersion{Identifier: fixVersion},
				},
			},
		},
		SecurityVulnerability: &advisory.SecurityVulnerability{
			Package:                advisory.Package{Ecosystem: "npm", Name: "lodash"},
			VulnerableVersionRange: "< " + fixVersion,
			FirstPatchedVersion:    &advisory.FirstPatchedVersion{Identifier: fixVersion},
		},
	}
}

func mustBuild(t *testing.T, org string, alerts []advisory.Alert) *OrgPlan {
	t.Helper()
	p, err := Build(org, alerts)
	require.NoError(t, err)
	return p
}

func TestBuild(t *testing.T) {
	t.Run("missing org fails", func(t *testing.T) {
		_, err := Build("", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "org")
	})

	t.Run("groups alerts by repo and package", func(t *testing.T) {
		alerts := []advisory.Alert{
			lodashAlert(1, "medium", "CVE-2020-8203", "4.17.19"),
			lodashAlert(2, "high", "CVE-2021-23337", "4.17.21"),
		}
		alerts = append(alerts, advisory.Alert{
			Number: 3,
			Repository: &advisory.Repository{
				FullName: "acme/api-server",
				HTMLURL:  "https://github.com/acme/api-server",
			},
			Dependency: advisory.Dependency{
				Package:      advisory.Package{Ecosystem: "pip", Name: "virtualenv"},
				ManifestPath: "requirements.txt",
			},
			SecurityAdvisory: &advisory.SecurityAdvisory{
				Severity:    "low",
				Description: "Sandbox escape. Versions with the fix: 20.21.0 and later.",
			},
		})

		p := mustBuild(t, "acme", alerts)

		assert.Equal(t, "acme", p.Org)
		assert.Equal(t, PlanSource, p.Source)
		assert.Equal(t, "open", p.State)
		require.Len(t, p.Repositories, 2)

		// Repositories are sorted by full name.
		assert.Equal(t, "api-server", p.Repositories[0].Name)
		assert.Equal(t, "web-app", p.Repositories[1].Name)

		webApp := p.Repositories[1]
		assert.Equal(t, "https://github.com/acme/web-app", webApp.HTMLURL)
		require.Len(t, webApp.SecurityAlerts, 1)

		pkg := webApp.SecurityAlerts[0]
		assert.Equal(t, "npm", pkg.Ecosystem)
		assert.Equal(t, "lodash", pkg.Package)
		assert.Len(t, pkg.Alerts, 2)
	})

	t.Run("folds severity to worst and cvss to highest", func(t *testing.T) {
		alerts := []advisory.Alert{
			lodashAlert(1, "medium", "CVE-2020-8203", "4.17.19"),
			lodashAlert(2, "high", "CVE-2021-23337", "4.17.21"),
		}
		alerts[1].SecurityAdvisory.CVSS = &advisory.CVSS{Score: 9.1}

		p := mustBuild(t, "acme", alerts)
		pkg := p.Repositories[0].SecurityAlerts[0]

		assert.Equal(t, "high", pkg.Severity)
		assert.Equal(t, 9.1, pkg.HighestCVSS)
	})

	t.Run("collects sorted unique identifiers and ranges", func(t *testing.T) {
		alerts := []advisory.Alert{
			lodashAlert(1, "medium", "CVE-2021-23337", "4.17.21"),
			lodashAlert(2, "high", "CVE-2020-8203", "4.17.21"),
		}

		p := mustBuild(t, "acme", alerts)
		pkg := p.Repositories[0].SecurityAlerts[0]

		assert.Equal(t, []string{"CVE-2020-8203", "CVE-2021-23337"}, pkg.CVEs)
		assert.Equal(t, []string{"GHSA-jf85-cpcp-j695"}, pkg.GHSAs)
		assert.Equal(t, []string{"< 4.17.21"}, pkg.VulnerableRanges)
		assert.Equal(t, []string{"4.17.21"}, pkg.FixVersions)
	})

	t.Run("scrapes fix versions from descriptions", func(t *testing.T) {
		a := advisory.Alert{
			Number:     1,
			Repository: &advisory.Repository{FullName: "acme/api-server"},
			Dependency: advisory.Dependency{
				Package:      advisory.Package{Ecosystem: "pip", Name: "virtualenv"},
				ManifestPath: "requirements.txt",
			},
			SecurityAdvisory: &advisory.SecurityAdvisory{
				Severity:    "high",
				Description: "Sandbox escape. Versions with the fix: 20.21.0 and later.",
			},
		}

		p := mustBuild(t, "acme", []advisory.Alert{a})
		pkg := p.Repositories[0].SecurityAlerts[0]

		assert.Equal(t, []string{"20.21.0"}, pkg.FixVersions)
		assert.Equal(t, "20.21.0", pkg.TargetVersion)
	})

	t.Run("pip target version compares numerically", func(t *testing.T) {
		alerts := []advisory.Alert{
			lodashAlert(1, "high", "CVE-1", "1.9.0"),
			lodashAlert(2, "high", "CVE-2", "1.10.0"),
		}
		for i := range alerts {
			alerts[i].Dependency.Package = advisory.Package{Ecosystem: "pip", Name: "django"}
			alerts[i].SecurityVulnerability.Package = alerts[i].Dependency.Package
		}

		p := mustBuild(t, "acme", alerts)
		assert.Equal(t, "1.10.0", p.Repositories[0].SecurityAlerts[0].TargetVersion)
	})

	t.Run("caps references at five", func(t *testing.T) {
		a := lodashAlert(1, "high", "CVE-2021-23337", "4.17.21")
		a.SecurityAdvisory.References = []advisory.Reference{
			{URL: "https://example.com/7"}, {URL: "https://example.com/3"},
			{URL: "https://example.com/5"}, {URL: "https://example.com/1"},
			{URL: "https://example.com/6"}, {URL: "https://example.com/2"},
		}

		p := mustBuild(t, "acme", []advisory.Alert{a})
		pkg := p.Repositories[0].SecurityAlerts[0]

		require.Len(t, pkg.References, 5)
		assert.Equal(t, "https://example.com/1", pkg.References[0])
	})

	t.Run("manifest scope keeps last write", func(t *testing.T) {
		a1 := lodashAlert(1, "high", "CVE-1", "4.17.21")
		a2 := lodashAlert(2, "high", "CVE-2", "4.17.21")
		a2.Dependency.Scope = "development"

		p := mustBuild(t, "acme", []advisory.Alert{a1, a2})
		manifests := p.Repositories[0].SecurityAlerts[0].Manifests

		require.Len(t, manifests, 1)
		assert.Equal(t, "package.json", manifests[0].Path)
		assert.Equal(t, "development", manifests[0].Scope)
	})

	t.Run("alert without repository lands in sentinel repo", func(t *testing.T) {
		a := advisory.Alert{
			Number:     9,
			Dependency: advisory.Dependency{Package: advisory.Package{Ecosystem: "npm", Name: "left-pad"}},
		}

		p := mustBuild(t, "acme", []advisory.Alert{a})
		require.Len(t, p.Repositories, 1)
		assert.Equal(t, "unknown", p.Repositories[0].Name)
	})

	t.Run("empty input yields empty plan", func(t *testing.T) {
		p := mustBuild(t, "acme", nil)
		assert.Empty(t, p.Repositories)
		assert.Equal(t, 0, p.AlertCount())
	})

	t.Run("alert refs carry per-alert metadata", func(t *testing.T) {
		alerts := []advisory.Alert{
			lodashAlert(1, "medium", "CVE-2020-8203", "4.17.19"),
			lodashAlert(2, "high", "CVE-2021-23337", "4.17.21"),
		}

		p := mustBuild(t, "acme", alerts)
		refs := p.Repositories[0].SecurityAlerts[0].Alerts

		require.Len(t, refs, 2)
		assert.Equal(t, 1, refs[0].Number)
		assert.Equal(t, "medium", refs[0].Severity)
		assert.Equal(t, []string{"CVE-2020-8203"}, refs[0].CVEs)
		assert.Equal(t, "< 4.17.19", refs[0].VulnerableVersionRange)
		assert.Equal(t, "Prototype pollution in lodash.", refs[0].Summary)
		assert.Equal(t, "high", refs[1].Severity)
	})
}
