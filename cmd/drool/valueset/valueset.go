// Package valueset collects the generated code literals into a FHIR R4
// ValueSet so the library's terminology can be loaded by a terminology
// server.
package valueset

import (
	"strings"

	"github.com/cqframework/cqftooling/models/cql"
	"github.com/cqframework/cqftooling/util"
	"github.com/gofhir/fhir/r4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

type Builder struct {
	baseURL string
	log     zerolog.Logger
}

func NewBuilder(baseURL string, log zerolog.Logger) *Builder {
	return &Builder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log,
	}
}

// ID derives a stable identifier for the library's ValueSet.
func (b *Builder) ID(library string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.baseURL+"/Library/"+library)).String()
}

// URL is the canonical URL of the library's ValueSet.
func (b *Builder) URL(library string) string {
	return b.baseURL + "/ValueSet/" + b.ID(library)
}

// Build returns a draft ValueSet including every code, grouped by code system
// in order of first appearance. Duplicate system/code pairs are included once.
func (b *Builder) Build(library string, codes []*cql.DirectReferenceCode) *r4.ValueSet {
	var systems []string
	concepts := make(map[string][]r4.ValueSetComposeIncludeConcept)
	seen := make(map[string]bool)

	for _, c := range codes {
		system := c.SystemURI()
		key := system + "|" + c.Code
		if seen[key] {
			continue
		}
		seen[key] = true

		if !slices.Contains(systems, system) {
			systems = append(systems, system)
		}
		concept := r4.ValueSetComposeIncludeConcept{Code: util.StringPtr(c.Code)}
		if c.Display != "" {
			concept.Display = util.StringPtr(c.Display)
		}
		concepts[system] = append(concepts[system], concept)
	}

	status := r4.PublicationStatusDraft
	vs := &r4.ValueSet{
		Id:     util.StringPtr(b.ID(library)),
		Url:    util.StringPtr(b.URL(library)),
		Name:   util.StringPtr(library),
		Status: &status,
	}
	if len(systems) == 0 {
		b.log.Warn().Str("library", library).Msg("No codes to include in value set")
		return vs
	}

	vs.Compose = &r4.ValueSetCompose{}
	for _, system := range systems {
		vs.Compose.Include = append(vs.Compose.Include, r4.ValueSetComposeInclude{
			System:  util.StringPtr(system),
			Concept: concepts[system],
		})
	}

	b.log.Debug().
		Str("url", *vs.Url).
		Int("systems", len(systems)).
		Int("codes", len(seen)).
		Msg("Built value set")
	return vs
}
