package entitystore

import (
	"encoding/xml"
	"strings"
)

// Condition operators understood by every adapter.
const (
	OperatorEqual    = "eq"
	OperatorNotEqual = "ne"
	OperatorNull     = "null"
	OperatorNotNull  = "not-null"
)

const (
	FilterAnd = "and"
	FilterOr  = "or"

	LinkTypeInner = "inner"
	LinkTypeOuter = "outer"
)

// Fetch is a fetch expression. It is always rendered through encoding/xml so
// values end up escaped inside attributes and can never change the shape of
// the query.
type Fetch struct {
	XMLName      xml.Name    `xml:"fetch"`
	Version      string      `xml:"version,attr,omitempty"`
	OutputFormat string      `xml:"output-format,attr,omitempty"`
	Mapping      string      `xml:"mapping,attr,omitempty"`
	Distinct     bool        `xml:"distinct,attr,omitempty"`
	NoLock       bool        `xml:"no-lock,attr,omitempty"`
	Top          int         `xml:"top,attr,omitempty"`
	Entity       FetchEntity `xml:"entity"`
}

// FetchEntity is the primary entity of a fetch.
type FetchEntity struct {
	Name          string           `xml:"name,attr"`
	AllAttributes *AllAttributes   `xml:"all-attributes"`
	Attributes    []FetchAttribute `xml:"attribute"`
	Filters       []*Filter        `xml:"filter"`
	Links         []*LinkEntity    `xml:"link-entity"`
}

// AllAttributes requests every attribute.
type AllAttributes struct{}

// FetchAttribute requests one attribute.
type FetchAttribute struct {
	Name string `xml:"name,attr"`
}

// LinkEntity joins a related entity type.
type LinkEntity struct {
	Name     string    `xml:"name,attr"`
	From     string    `xml:"from,attr"`
	To       string    `xml:"to,attr"`
	Alias    string    `xml:"alias,attr,omitempty"`
	LinkType string    `xml:"link-type,attr,omitempty"`
	Filters  []*Filter `xml:"filter"`
}

// Filter groups conditions with and/or.
type Filter struct {
	Type       string      `xml:"type,attr,omitempty"`
	Conditions []Condition `xml:"condition"`
}

// Condition compares one attribute.
type Condition struct {
	Attribute string `xml:"attribute,attr"`
	Operator  string `xml:"operator,attr"`
	Value     string `xml:"value,attr"`
}

// MarshalXML writes the value attribute for every operator that compares
// against one, an empty value included. null and not-null carry none.
func (c Condition) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "attribute"}, Value: c.Attribute},
		{Name: xml.Name{Local: "operator"}, Value: c.Operator},
	}
	if c.Operator != OperatorNull && c.Operator != OperatorNotNull {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "value"}, Value: c.Value})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// AllAttributesOf returns a fetch of every attribute of entity.
func AllAttributesOf(entity string) *Fetch {
	return &Fetch{
		Version:      "1.0",
		OutputFormat: "xml-platform",
		Mapping:      "logical",
		Entity: FetchEntity{
			Name:          entity,
			AllAttributes: &AllAttributes{},
		},
	}
}

// Select restricts the fetch to the named attributes.
func (f *Fetch) Select(names ...string) *Fetch {
	f.Entity.AllAttributes = nil
	for _, name := range names {
		f.Entity.Attributes = append(f.Entity.Attributes, FetchAttribute{Name: name})
	}
	return f
}

// WithDistinct sets distinct='true'.
func (f *Fetch) WithDistinct() *Fetch {
	f.Distinct = true
	return f
}

// WithNoLock sets no-lock='true'.
func (f *Fetch) WithNoLock() *Fetch {
	f.NoLock = true
	return f
}

// WithTop limits the number of returned records.
func (f *Fetch) WithTop(n int) *Fetch {
	f.Top = n
	return f
}

// Where adds a condition to the primary entity and filter.
func (f *Fetch) Where(attribute, operator, value string) *Fetch {
	f.Entity.Filters = addCondition(f.Entity.Filters, Condition{
		Attribute: attribute,
		Operator:  operator,
		Value:     value,
	})
	return f
}

// WhereEqual adds an equality condition to the primary entity.
func (f *Fetch) WhereEqual(attribute, value string) *Fetch {
	return f.Where(attribute, OperatorEqual, value)
}

// Link appends a link entity.
func (f *Fetch) Link(link *LinkEntity) *Fetch {
	if link != nil {
		f.Entity.Links = append(f.Entity.Links, link)
	}
	return f
}

// InnerJoin returns an inner link from the primary entity attribute to to
// the linked entity attribute from.
func InnerJoin(name, from, to, alias string) *LinkEntity {
	return &LinkEntity{
		Name:     name,
		From:     from,
		To:       to,
		Alias:    alias,
		LinkType: LinkTypeInner,
	}
}

// WhereEqual adds an equality condition on the linked entity.
func (l *LinkEntity) WhereEqual(attribute, value string) *LinkEntity {
	l.Filters = addCondition(l.Filters, Condition{
		Attribute: attribute,
		Operator:  OperatorEqual,
		Value:     value,
	})
	return l
}

// IsInner reports whether the link restricts the primary rows.
func (l *LinkEntity) IsInner() bool {
	return l.LinkType == "" || l.LinkType == LinkTypeInner
}

func addCondition(filters []*Filter, cond Condition) []*Filter {
	for _, f := range filters {
		if f.Type == "" || f.Type == FilterAnd {
			f.Conditions = append(f.Conditions, cond)
			return filters
		}
	}
	return append(filters, &Filter{Type: FilterAnd, Conditions: []Condition{cond}})
}

// Encode renders the fetch expression.
func (f *Fetch) Encode() (string, error) {
	out, err := xml.Marshal(f)
	if err != nil {
		return "", ErrInvalidFetch.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	return string(out), nil
}

// String renders the fetch expression, empty if it cannot be encoded.
func (f *Fetch) String() string {
	out, err := f.Encode()
	if err != nil {
		return ""
	}
	return out
}

// ParseFetch decodes a fetch expression.
func ParseFetch(text string) (*Fetch, error) {
	f := &Fetch{}
	if err := xml.Unmarshal([]byte(text), f); err != nil {
		return nil, ErrInvalidFetch.Clone().WithMetadata(map[string]any{"cause": err.Error()})
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate checks the parts of the expression adapters rely on.
func (f *Fetch) Validate() error {
	if f == nil || strings.TrimSpace(f.Entity.Name) == "" {
		return ErrInvalidFetch.Clone().WithMetadata(map[string]any{"reason": "entity name is required"})
	}

	check := func(filters []*Filter) error {
		for _, filter := range filters {
			if filter.Type != "" && filter.Type != FilterAnd && filter.Type != FilterOr {
				return ErrInvalidFetch.Clone().WithMetadata(map[string]any{"reason": "unknown filter type", "type": filter.Type})
			}
			for _, c := range filter.Conditions {
				switch c.Operator {
				case OperatorEqual, OperatorNotEqual, OperatorNull, OperatorNotNull:
				default:
					return ErrInvalidFetch.Clone().WithMetadata(map[string]any{"reason": "unsupported operator", "operator": c.Operator})
				}
			}
		}
		return nil
	}

	if err := check(f.Entity.Filters); err != nil {
		return err
	}

	for _, link := range f.Entity.Links {
		if link.Name == "" || link.From == "" || link.To == "" {
			return ErrInvalidFetch.Clone().WithMetadata(map[string]any{"reason": "link-entity requires name, from and to"})
		}
		if err := check(link.Filters); err != nil {
			return err
		}
	}

	return nil
}
