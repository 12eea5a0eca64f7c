// internal/plan/aggregate.go
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fyrsmithlabs/packagebot/internal/advisory"
)

var severityRank = map[string]int{
	"critical": 4,
	"high":     3,
	"medium":   2,
	"low":      1,
}

type packageKey struct {
	ecosystem string
	name      string
}

// Build folds raw alerts into an OrgPlan: alerts are grouped by
// (repository, ecosystem, package) and each group collapses into one
// PackageSummary. Output ordering is deterministic so identical input
// always produces an identical plan artifact. Malformed alerts degrade
// record-by-record; only a missing org fails the call.
func Build(org string, alerts []advisory.Alert) (*OrgPlan, error) {
	if org == "" {
		return nil, fmt.Errorf("missing required parameter: org")
	}

	grouped := make(map[string]map[packageKey][]*advisory.Alert)
	repoURLs := make(map[string]string)

	for i := range alerts {
		a := &alerts[i]
		repo := a.RepositoryFullName()

		key := packageKey{
			ecosystem: a.Dependency.Package.Ecosystem,
			name:      a.Dependency.Package.Name,
		}
		if key.ecosystem == "" {
			key.ecosystem = "unknown"
		}
		if key.name == "" {
			key.name = "unknown"
		}

		if grouped[repo] == nil {
			grouped[repo] = make(map[packageKey][]*advisory.Alert)
		}
		grouped[repo][key] = append(grouped[repo][key], a)

		if repoURLs[repo] == "" {
			repoURLs[repo] = a.RepositoryHTMLURL()
		}
	}

	repoNames := make([]string, 0, len(grouped))
	for name := range grouped {
		repoNames = append(repoNames, name)
	}
	sort.Strings(repoNames)

	repositories := make([]RepositoryPlan, 0, len(repoNames))
	for _, fullName := range repoNames {
		shortName := fullName
		if _, after, ok := strings.Cut(fullName, "/"); ok {
			shortName = after
		}

		pkgMap := grouped[fullName]
		keys := make([]packageKey, 0, len(pkgMap))
		for k := range pkgMap {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].ecosystem != keys[j].ecosystem {
				return keys[i].ecosystem < keys[j].ecosystem
			}
			return keys[i].name < keys[j].name
		})

		summaries := make([]PackageSummary, 0, len(keys))
		for _, k := range keys {
			summaries = append(summaries, foldPackage(k, pkgMap[k]))
		}

		repositories = append(repositories, RepositoryPlan{
			Name:           shortName,
			HTMLURL:        repoURLs[fullName],
			SecurityAlerts: summaries,
		})
	}

	return &OrgPlan{
		Org:          org,
		Source:       PlanSource,
		State:        "open",
		Repositories: repositories,
	}, nil
}

// foldPackage collapses all alerts for one package into a summary.
func foldPackage(key packageKey, alerts []*advisory.Alert) PackageSummary {
	manifests := make(map[string]string)
	fixVersions := newStringSet()
	ghsas := newStringSet()
	cves := newStringSet()
	ranges := newStringSet()
	references := newStringSet()

	var alertRefs []AlertRef
	var severities []string
	var summaries []string
	var descriptions []string
	var cvssScores []float64

	for _, a := range alerts {
		sa := a.SecurityAdvisory
		sv := a.SecurityVulnerability

		alertRefs = append(alertRefs, buildAlertRef(a))

		if a.Dependency.ManifestPath != "" {
			manifests[a.Dependency.ManifestPath] = a.Dependency.Scope
		}

		if sa != nil {
			for _, ident := range sa.Identifiers {
				switch ident.Type {
				case "GHSA":
					ghsas.add(ident.Value)
				case "CVE":
					cves.add(ident.Value)
				}
			}
			if sa.Severity != "" {
				severities = append(severities, sa.Severity)
			}
			if sa.CVSS != nil && sa.CVSS.Score > 0 {
				cvssScores = append(cvssScores, sa.CVSS.Score)
			}
			if sa.Summary != "" {
				summaries = append(summaries, sa.Summary)
			}
			if sa.Description != "" {
				descriptions = append(descriptions, sa.Description)
			}
			for _, ref := range sa.References {
				references.add(ref.URL)
			}
			for _, v := range sa.Vulnerabilities {
				ranges.add(v.VulnerableVersionRange)
				if v.FirstPatchedVersion != nil {
					fixVersions.add(v.FirstPatchedVersion.Identifier)
				}
			}
		}

		if sv != nil {
			ranges.add(sv.VulnerableVersionRange)
			if sv.FirstPatchedVersion != nil {
				fixVersions.add(sv.FirstPatchedVersion.Identifier)
			}
		}
	}

	// Some advisories only name the patched release in prose.
	for _, desc := range descriptions {
		fixVersions.add(extractFixVersion(desc))
	}

	manifestPaths := make([]string, 0, len(manifests))
	for path := range manifests {
		manifestPaths = append(manifestPaths, path)
	}
	sort.Strings(manifestPaths)
	manifestRefs := make([]ManifestRef, 0, len(manifestPaths))
	for _, path := range manifestPaths {
		manifestRefs = append(manifestRefs, ManifestRef{Path: path, Scope: manifests[path]})
	}

	fixes := fixVersions.sorted()

	summary := ""
	if len(summaries) > 0 {
		summary = truncateSummary(summaries[0])
	} else if len(descriptions) > 0 {
		summary = truncateSummary(descriptions[0])
	}

	refs := references.sorted()
	if len(refs) > 5 {
		refs = refs[:5]
	}

	maxCVSS := 0.0
	for _, score := range cvssScores {
		if score > maxCVSS {
			maxCVSS = score
		}
	}

	return PackageSummary{
		Ecosystem:        key.ecosystem,
		Package:          key.name,
		Manifests:        manifestRefs,
		TargetVersion:    targetVersion(key.ecosystem, fixes),
		FixVersions:      fixes,
		Severity:         worstSeverity(severities),
		HighestCVSS:      maxCVSS,
		GHSAs:            ghsas.sorted(),
		CVEs:             cves.sorted(),
		VulnerableRanges: ranges.sorted(),
		Summary:          summary,
		References:       refs,
		Alerts:           alertRefs,
	}
}

// buildAlertRef extracts per-alert metadata for one underlying alert.
func buildAlertRef(a *advisory.Alert) AlertRef {
	ref := AlertRef{
		Number:  a.Number,
		HTMLURL: a.HTMLURL,
		GHSAs:   []string{},
		CVEs:    []string{},
	}

	sa := a.SecurityAdvisory
	if sa != nil {
		for _, ident := range sa.Identifiers {
			switch ident.Type {
			case "GHSA":
				ref.GHSAs = append(ref.GHSAs, ident.Value)
			case "CVE":
				ref.CVEs = append(ref.CVEs, ident.Value)
			}
		}
		ref.Severity = sa.Severity
		if sa.Summary != "" {
			ref.Summary = truncateSummary(sa.Summary)
		} else if sa.Description != "" {
			ref.Summary = truncateSummary(sa.Description)
		}
	}

	if a.SecurityVulnerability != nil && a.SecurityVulnerability.VulnerableVersionRange != "" {
		ref.VulnerableVersionRange = a.SecurityVulnerability.VulnerableVersionRange
	} else if sa != nil {
		for _, v := range sa.Vulnerabilities {
			if v.VulnerableVersionRange != "" {
				ref.VulnerableVersionRange = v.VulnerableVersionRange
				break
			}
		}
	}

	return ref
}

// worstSeverity picks the highest-ranked severity, keeping the first
// occurrence on ties.
func worstSeverity(severities []string) string {
	best := ""
	bestRank := -1
	for _, s := range severities {
		if rank := severityRank[strings.ToLower(s)]; rank > bestRank {
			best = s
			bestRank = rank
		}
	}
	return best
}

type stringSet map[string]struct{}

func newStringSet() stringSet { return make(stringSet) }

func (s stringSet) add(v string) {
	if v != "" {
		s[v] = struct{}{}
	}
}

func (s stringSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
