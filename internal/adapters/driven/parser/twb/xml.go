package twb

import "strings"

type xmlWorkbook struct {
	Datasources []xmlDatasource `xml:"datasources>datasource"`
}

type xmlDatasource struct {
	Name       string         `xml:"name,attr"`
	Caption    string         `xml:"caption,attr"`
	Connection *xmlConnection `xml:"connection"`
	Columns    []xmlColumn    `xml:"column"`
}

func (d xmlDatasource) displayName() string {
	if d.Caption != "" {
		return d.Caption
	}
	return d.Name
}

type xmlConnection struct {
	Relations []xmlRelation      `xml:"relation"`
	Records   []xmlMetadataRecord `xml:"metadata-records>metadata-record"`
}

type xmlRelation struct {
	Type      string        `xml:"type,attr"`
	Name      string        `xml:"name,attr"`
	Text      string        `xml:",chardata"`
	Relations []xmlRelation `xml:"relation"`
}

// queries appends the text of every custom SQL relation in document order.
func (r xmlRelation) queries(out []string) []string {
	if r.Type == "text" {
		if q := strings.TrimSpace(r.Text); q != "" {
			out = append(out, q)
		}
	}
	for _, child := range r.Relations {
		out = child.queries(out)
	}
	return out
}

type xmlMetadataRecord struct {
	Class      string `xml:"class,attr"`
	RemoteName string `xml:"remote-name"`
	LocalName  string `xml:"local-name"`
	LocalType  string `xml:"local-type"`
}

type xmlColumn struct {
	Name        string          `xml:"name,attr"`
	Caption     string          `xml:"caption,attr"`
	Datatype    string          `xml:"datatype,attr"`
	Calculation *xmlCalculation `xml:"calculation"`
	Desc        *xmlDesc        `xml:"desc"`
}

func (c xmlColumn) displayName() string {
	if c.Caption != "" {
		return c.Caption
	}
	return c.Name
}

type xmlCalculation struct {
	Class   string `xml:"class,attr"`
	Formula string `xml:"formula,attr"`
}

type xmlDesc struct {
	Runs []string `xml:"formatted-text>run"`
}

func (d *xmlDesc) text() string {
	if d == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(d.Runs, ""))
}
