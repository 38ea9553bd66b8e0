package arc

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// arcContext is the fixed @context for an RO-Crate-flavored ARC
// document: schema.org terms for the common fields, plus a bare
// "arc" alias for the domain-specific annotation predicates.
var arcContext = map[string]any{
	"schema": "http://schema.org/",
	"arc":    "https://bioregistry.io/schema#",
}

type ldNode map[string]any

// ToROCrateJSONLD renders inv and its full subtree into an RO-Crate
// "@graph" document. Rendering is pure and deterministic: calling it
// twice on the same tree produces byte-identical output.
func (inv *Investigation) ToROCrateJSONLD() ([]byte, error) {
	graph := []ldNode{inv.investigationNode()}

	for _, st := range inv.studies {
		graph = append(graph, st.node(inv.ID))
		for _, a := range st.assays {
			graph = append(graph, a.node(st.ID))
		}
	}

	doc := ldNode{
		"@context": arcContext,
		"@graph":   graph,
	}

	out, err := sonic.ConfigStd.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("render ARC json-ld: %w", err)
	}
	return out, nil
}

func (inv *Investigation) investigationNode() ldNode {
	node := ldNode{
		"@id":                "#investigation/" + inv.ID,
		"@type":              "schema:ResearchProject",
		"schema:identifier":  inv.ID,
		"schema:name":        inv.Title,
		"schema:description": inv.Description,
	}
	if inv.SubmissionDate != "" {
		node["schema:dateCreated"] = inv.SubmissionDate
	}
	if inv.ReleaseDate != "" {
		node["schema:datePublished"] = inv.ReleaseDate
	}

	studyRefs := make([]ldNode, 0, len(inv.studies))
	for _, st := range inv.studies {
		studyRefs = append(studyRefs, ldNode{"@id": "#study/" + st.ID})
	}
	if len(studyRefs) > 0 {
		node["schema:hasPart"] = studyRefs
	}

	if len(inv.Persons) > 0 {
		node["schema:creator"] = personNodes(inv.Persons)
	}
	if len(inv.Publications) > 0 {
		node["schema:citation"] = publicationNodes(inv.Publications)
	}
	if len(inv.Comments) > 0 {
		node["arc:comment"] = commentNodes(inv.Comments)
	}
	return node
}

func (st *Study) node(investigationID string) ldNode {
	node := ldNode{
		"@id":                "#study/" + st.ID,
		"@type":              "schema:Study",
		"schema:identifier":  st.ID,
		"schema:name":        st.Title,
		"schema:description": st.Description,
		"schema:isPartOf":    ldNode{"@id": "#investigation/" + investigationID},
	}

	assayRefs := make([]ldNode, 0, len(st.assays))
	for _, a := range st.assays {
		assayRefs = append(assayRefs, ldNode{"@id": "#assay/" + a.ID})
	}
	if len(assayRefs) > 0 {
		node["schema:hasPart"] = assayRefs
	}

	if len(st.Tables) > 0 {
		tables := make([]ldNode, 0, len(st.Tables))
		for i, t := range st.Tables {
			tables = append(tables, t.node(st.ID, i))
		}
		node["arc:table"] = tables
	}
	if len(st.Comments) > 0 {
		node["arc:comment"] = commentNodes(st.Comments)
	}
	return node
}

func (t *Table) node(studyID string, index int) ldNode {
	cells := make([]ldNode, 0, len(t.Cells))
	for _, c := range t.Cells {
		cells = append(cells, ldNode{
			"arc:header": c.Header,
			"arc:value":  c.Value,
		})
	}
	return ldNode{
		"@id":        fmt.Sprintf("#table/%s/%d", studyID, index),
		"arc:name":   t.Name,
		"arc:column": cells,
	}
}

func (a *Assay) node(studyID string) ldNode {
	node := ldNode{
		"@id":                 "#assay/" + a.ID,
		"@type":               "schema:Dataset",
		"schema:identifier":   a.ID,
		"arc:measurementType": a.MeasurementType,
		"arc:technologyType":  a.TechnologyType,
		"schema:isPartOf":     ldNode{"@id": "#study/" + studyID},
	}
	if a.TechnologyPlatform != "" {
		node["arc:technologyPlatform"] = a.TechnologyPlatform
	}
	if len(a.Comments) > 0 {
		node["arc:comment"] = commentNodes(a.Comments)
	}
	return node
}

func personNodes(persons []Person) []ldNode {
	out := make([]ldNode, 0, len(persons))
	for _, p := range persons {
		node := ldNode{
			"@type":             "schema:Person",
			"schema:givenName":  p.FirstName,
			"schema:familyName": p.LastName,
		}
		if p.Email != "" {
			node["schema:email"] = p.Email
		}
		if p.Address != "" {
			node["schema:address"] = p.Address
		}
		if p.Affiliation != "" {
			node["schema:affiliation"] = p.Affiliation
		}
		if len(p.Roles) > 0 {
			node["arc:role"] = p.Roles
		}
		out = append(out, node)
	}
	return out
}

func publicationNodes(pubs []Publication) []ldNode {
	out := make([]ldNode, 0, len(pubs))
	for _, p := range pubs {
		out = append(out, ldNode{
			"@type":             "schema:ScholarlyArticle",
			"schema:identifier": p.DOI,
			"schema:name":       p.Title,
			"arc:authors":       p.Authors,
		})
	}
	return out
}

func commentNodes(comments []Comment) []ldNode {
	out := make([]ldNode, 0, len(comments))
	for _, c := range comments {
		out = append(out, ldNode{
			"arc:name":  c.Name,
			"arc:value": c.Value,
		})
	}
	return out
}
