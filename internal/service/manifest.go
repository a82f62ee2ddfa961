package service

import (
	"encoding/json"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"lms_content_backend/internal/model"
	"lms_content_backend/internal/util"
)

// ManifestItem is one node of an organization's item tree.
type ManifestItem struct {
	Identifier    string         `json:"identifier"`
	Title         string         `json:"title"`
	LaunchURL     string         `json:"launch_url,omitempty"`
	IdentifierRef string         `json:"-"`
	Parameters    string         `json:"-"`
	Children      []ManifestItem `json:"children,omitempty"`
}

// ParsedManifest is the digest of an imsmanifest.xml that the rest of the
// system needs: package kind, display title, and the launch URL of the
// first launchable item.
type ParsedManifest struct {
	SchemaVersion string         `json:"schema_version"`
	Kind          model.PackageKind
	Title         string         `json:"title"`
	LaunchURL     string         `json:"launch_url"`
	MasteryScore  *float64       `json:"mastery_score,omitempty"`
	Items         []ManifestItem `json:"items"`
}

type xmlManifest struct {
	Metadata struct {
		SchemaVersion string `xml:"schemaversion"`
	} `xml:"metadata"`
	Organizations struct {
		Default       string            `xml:"default,attr"`
		Organizations []xmlOrganization `xml:"organization"`
	} `xml:"organizations"`
	Resources struct {
		Resources []xmlResource `xml:"resource"`
	} `xml:"resources"`
}

type xmlOrganization struct {
	Identifier string    `xml:"identifier,attr"`
	Title      string    `xml:"title"`
	Items      []xmlItem `xml:"item"`
}

type xmlItem struct {
	Identifier    string    `xml:"identifier,attr"`
	IdentifierRef string    `xml:"identifierref,attr"`
	Parameters    string    `xml:"parameters,attr"`
	Title         string    `xml:"title"`
	MasteryScore  string    `xml:"masteryscore"`
	Items         []xmlItem `xml:"item"`
}

type xmlResource struct {
	Identifier string `xml:"identifier,attr"`
	Type       string `xml:"type,attr"`
	Href       string `xml:"href,attr"`
	Base       string `xml:"base,attr"`
}

// scorm2004Versions are the schemaversion values that mark a SCORM 2004
// package. Anything else, including an absent metadata block, is treated
// as SCORM 1.2.
var scorm2004Versions = []string{"2004", "CAM 1.3", "1.3"}

func detectSchemaKind(version string) model.PackageKind {
	v := strings.TrimSpace(version)
	for _, marker := range scorm2004Versions {
		if strings.HasPrefix(v, marker) {
			return model.PackageScorm2004
		}
	}
	return model.PackageScorm12
}

// ParseSCORMManifest reads an imsmanifest.xml and resolves the default
// organization's first launchable item against the resource table.
func ParseSCORMManifest(r io.Reader) (*ParsedManifest, error) {
	var m xmlManifest
	dec := xml.NewDecoder(r)
	// Content tools ship manifests in all sorts of encodings.
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := dec.Decode(&m); err != nil {
		return nil, &util.ManifestError{Reason: "malformed manifest XML: " + err.Error()}
	}

	parsed := &ParsedManifest{
		SchemaVersion: strings.TrimSpace(m.Metadata.SchemaVersion),
	}
	parsed.Kind = detectSchemaKind(parsed.SchemaVersion)

	resources := make(map[string]xmlResource, len(m.Resources.Resources))
	for _, res := range m.Resources.Resources {
		resources[res.Identifier] = res
	}

	org := defaultOrganization(&m)
	if org == nil {
		// Resource-only manifests exist in the wild; fall back to the first
		// resource that carries an href.
		for _, res := range m.Resources.Resources {
			if res.Href != "" {
				launch, err := resolveLaunchURL(res, "")
				if err != nil {
					return nil, err
				}
				parsed.LaunchURL = launch
				return parsed, nil
			}
		}
		return nil, &util.ManifestError{Reason: "manifest has no organizations and no launchable resource"}
	}

	parsed.Title = strings.TrimSpace(org.Title)
	parsed.Items = convertItems(org.Items, resources)
	parsed.MasteryScore = firstMasteryScore(org.Items)

	launch := firstLaunchURL(parsed.Items)
	if launch == "" {
		return nil, &util.ManifestError{Reason: "no item in the default organization references a launchable resource"}
	}
	parsed.LaunchURL = launch
	return parsed, nil
}

func defaultOrganization(m *xmlManifest) *xmlOrganization {
	orgs := m.Organizations.Organizations
	if len(orgs) == 0 {
		return nil
	}
	if m.Organizations.Default != "" {
		for i := range orgs {
			if orgs[i].Identifier == m.Organizations.Default {
				return &orgs[i]
			}
		}
	}
	return &orgs[0]
}

func convertItems(items []xmlItem, resources map[string]xmlResource) []ManifestItem {
	out := make([]ManifestItem, 0, len(items))
	for _, it := range items {
		node := ManifestItem{
			Identifier:    it.Identifier,
			Title:         strings.TrimSpace(it.Title),
			IdentifierRef: it.IdentifierRef,
			Parameters:    it.Parameters,
			Children:      convertItems(it.Items, resources),
		}
		if it.IdentifierRef != "" {
			if res, ok := resources[it.IdentifierRef]; ok && res.Href != "" {
				if launch, err := resolveLaunchURL(res, it.Parameters); err == nil {
					node.LaunchURL = launch
				}
			}
		}
		out = append(out, node)
	}
	return out
}

func firstLaunchURL(items []ManifestItem) string {
	for _, it := range items {
		if it.LaunchURL != "" {
			return it.LaunchURL
		}
		if launch := firstLaunchURL(it.Children); launch != "" {
			return launch
		}
	}
	return ""
}

func firstMasteryScore(items []xmlItem) *float64 {
	for _, it := range items {
		if s := strings.TrimSpace(it.MasteryScore); s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				return &v
			}
		}
		if v := firstMasteryScore(it.Items); v != nil {
			return v
		}
	}
	return nil
}

// resolveLaunchURL joins a resource's xml:base and href, validates the
// path component stays inside the package, and re-attaches any query
// string plus item parameters.
func resolveLaunchURL(res xmlResource, parameters string) (string, error) {
	raw := res.Href
	if res.Base != "" {
		raw = strings.TrimSuffix(res.Base, "/") + "/" + strings.TrimPrefix(raw, "/")
	}

	pathPart, query := raw, ""
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		pathPart, query = raw[:idx], raw[idx:]
	}

	clean, err := util.NormalizeContentPath(pathPart)
	if err != nil {
		return "", &util.ManifestError{Reason: "resource href escapes the package: " + res.Href}
	}

	launch := clean + query
	if parameters != "" {
		switch {
		case strings.HasPrefix(parameters, "?") && query != "":
			launch += "&" + parameters[1:]
		case strings.HasPrefix(parameters, "?") || strings.HasPrefix(parameters, "#"):
			launch += parameters
		case query != "":
			launch += "&" + parameters
		default:
			launch += "?" + parameters
		}
	}
	return launch, nil
}

// H5PDefinition is the subset of h5p.json the runtime needs.
type H5PDefinition struct {
	Title                 string `json:"title"`
	MainLibrary           string `json:"mainLibrary"`
	Language              string `json:"language"`
	EmbedTypes            []string `json:"embedTypes"`
	PreloadedDependencies []struct {
		MachineName  string `json:"machineName"`
		MajorVersion int    `json:"majorVersion"`
		MinorVersion int    `json:"minorVersion"`
	} `json:"preloadedDependencies"`
}

// ParseH5PDefinition reads an h5p.json package definition.
func ParseH5PDefinition(r io.Reader) (*H5PDefinition, error) {
	var def H5PDefinition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, &util.ManifestError{Reason: "malformed h5p.json: " + err.Error()}
	}
	if def.MainLibrary == "" {
		return nil, &util.ManifestError{Reason: "h5p.json missing mainLibrary"}
	}
	return &def, nil
}
